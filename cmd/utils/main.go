package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/joho/godotenv"

	"github.com/momomagic/momo/cmd/utils/internal/commands"
)

const (
	appName    = "momo-utils"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	var args, flags []string
	for _, a := range os.Args[2:] {
		if strings.HasPrefix(a, "--") {
			flags = append(flags, a)
		} else {
			args = append(args, a)
		}
	}

	// Shares the ORDER namespace so the same .env reaches the service database.
	config, err := apt.LoadConfig("ORDER", flags)
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logLevel, _ := config.GetString("log.level")
	if logLevel == "" {
		logLevel = "info"
	}
	logger := apt.NewLogger(logLevel)

	ctx := context.Background()
	command := os.Args[1]

	switch command {
	case "clear-demo":
		if err := commands.ClearDemo(ctx, config, logger); err != nil {
			log.Fatalf("❌ Clear demo data failed: %v", err)
		}
		logger.Info("✅ Demo menu cleared successfully")

	case "clear-session":
		if len(args) < 1 {
			log.Fatalf("❌ Usage: %s clear-session <session-id>", appName)
		}
		if err := commands.ClearSession(ctx, config, logger, args[0]); err != nil {
			log.Fatalf("❌ Clear session failed: %v", err)
		}
		logger.Info("✅ Session cleared successfully")

	case "reset-db":
		if err := commands.ResetDB(ctx, config, logger); err != nil {
			log.Fatalf("❌ Database reset failed: %v", err)
		}
		logger.Info("✅ Database reset completed successfully")

	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - Momo Magic utility commands

Usage:
  %s <command> [args] [--key=value]

Commands:
  clear-demo                 Drop the demo menu so the service seeds it again
  clear-session <session-id> Delete the orders and bill of one dining session
  reset-db                   Drop the whole database (USE WITH CAUTION)
  version                    Print version information
  help                       Show this help message

Environment Variables:
  ORDER_DB_MONGO_URL   MongoDB connection URL (default: mongodb://localhost:27017)
  ORDER_DB_MONGO_NAME  Database name (default: momo)
  ORDER_LOG_LEVEL      Log level: debug, info, warn, error (default: info)

Examples:
  %s clear-demo
  %s clear-session table7-1768200000000-9f3ab2c1
  ORDER_DB_MONGO_URL=mongodb://localhost:27017 %s reset-db

`, appName, appName, appName, appName, appName)
}
