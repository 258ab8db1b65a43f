package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	ajaxcrud "github.com/metazen11/ajaxCRUD"
	"github.com/metazen11/ajaxCRUD/model"
	"github.com/metazen11/ajaxCRUD/service"
)

var (
	flagAddr      string
	flagDriver    string
	flagDSN       string
	flagConfigDir string
	flagAudit     bool
	flagDebugSQL  bool
)

var rootCmd = &cobra.Command{
	Use:   "gridserv",
	Short: "Serve editable grids for configured database tables",
	Long: `gridserv mounts every grid config found in the config dir as an
editable HTML grid at /ajaxcrud/<name>. Connection settings come from
flags or the environment (a .env file is honored when present).`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&flagAddr, "addr", ":8080", "listen address")
	rootCmd.Flags().StringVar(&flagDriver, "driver", "sqlite", "database driver (sqlite, mysql, postgres)")
	rootCmd.Flags().StringVar(&flagDSN, "dsn", "", "database DSN (falls back to DATABASE_DSN)")
	rootCmd.Flags().StringVar(&flagConfigDir, "config-dir", "config/grids", "directory of grid config files")
	rootCmd.Flags().BoolVar(&flagAudit, "audit", false, "record changes to the audit_log table")
	rootCmd.Flags().BoolVar(&flagDebugSQL, "debug-sql", false, "log every SQL statement")
}

func openDB() (*gorm.DB, error) {
	dsn := flagDSN
	if dsn == "" {
		dsn = os.Getenv("DATABASE_DSN")
	}

	switch strings.ToLower(flagDriver) {
	case "sqlite":
		if dsn == "" {
			dsn = "gridserv.db"
		}
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	case "mysql":
		return gorm.Open(mysql.Open(dsn), &gorm.Config{})
	case "postgres":
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unknown driver %q", flagDriver)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err == nil {
		log.Println("gridserv: loaded .env")
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	cfg := &model.GridConfig{
		ConfigDir: flagConfigDir,
		DebugSQL:  flagDebugSQL,
	}

	if flagAudit {
		auditLog := service.NewDBAuditLog(db)
		if err := auditLog.CreateTable(); err != nil {
			return fmt.Errorf("create audit table: %w", err)
		}
		cfg.Audit = auditLog
	}

	r := gin.Default()
	ajaxcrud.New(r, db, cfg)

	log.Printf("gridserv: listening on %s, configs from %s", flagAddr, flagConfigDir)
	return r.Run(flagAddr)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
