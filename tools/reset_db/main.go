package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"teamflow/config"
	"teamflow/internal/model"
	dbPkg "teamflow/pkg/db"

	"gorm.io/gorm"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "配置文件路径")
	force := flag.Bool("yes", false, "跳过确认")
	flag.Parse()

	cfg := config.LoadConfigFrom(*configPath)

	orm, err := dbPkg.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	sqlDB, err := orm.DB()
	if err != nil {
		log.Fatalf("Database handle failed: %v", err)
	}
	defer sqlDB.Close()

	tables, err := tableNames(orm)
	if err != nil {
		log.Fatalf("Resolve tables failed: %v", err)
	}

	fmt.Printf("Driver: %s, Database: %s\n", cfg.Database.Driver, cfg.Database.Database)
	fmt.Printf("WARNING: this will DELETE ALL ROWS in %s\n", strings.Join(tables, ", "))
	if !*force && !confirm() {
		fmt.Println("Operation cancelled")
		return
	}

	sqlite := cfg.Database.Driver == "sqlite"
	failed := 0
	err = dbPkg.WithTx(orm, func(tx *gorm.DB) error {
		setForeignKeys(tx, sqlite, false)
		defer setForeignKeys(tx, sqlite, true)

		for _, table := range tables {
			if err := tx.Exec("DELETE FROM " + tx.Statement.Quote(table)).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
			fmt.Printf("Cleared %s\n", table)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Reset failed, nothing was deleted: %v", err)
	}

	// MySQL 的 ALTER TABLE 会隐式提交，自增重置放在事务之外
	for _, table := range tables {
		if err := resetAutoIncrement(orm, sqlite, table); err != nil {
			fmt.Printf("Reset %s auto-increment failed: %v\n", table, err)
			failed++
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
	fmt.Println("Database reset completed, schema preserved")
}

// tableNames 按迁移顺序的逆序返回表名，子表在前
func tableNames(orm *gorm.DB) ([]string, error) {
	models := model.All()
	names := make([]string, 0, len(models))
	for i := len(models) - 1; i >= 0; i-- {
		stmt := &gorm.Statement{DB: orm}
		if err := stmt.Parse(models[i]); err != nil {
			return nil, err
		}
		names = append(names, stmt.Schema.Table)
	}
	return names, nil
}

func confirm() bool {
	fmt.Print("Type 'YES' to confirm: ")
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line) == "YES"
}

func resetAutoIncrement(orm *gorm.DB, sqlite bool, table string) error {
	if sqlite {
		// 没有 AUTOINCREMENT 列时 sqlite_sequence 不存在
		if !orm.Migrator().HasTable("sqlite_sequence") {
			return nil
		}
		return orm.Exec("DELETE FROM sqlite_sequence WHERE name = ?", table).Error
	}
	return orm.Exec("ALTER TABLE " + orm.Statement.Quote(table) + " AUTO_INCREMENT = 1").Error
}

func setForeignKeys(tx *gorm.DB, sqlite, enabled bool) {
	switch {
	case sqlite && enabled:
		tx.Exec("PRAGMA foreign_keys = ON")
	case sqlite:
		tx.Exec("PRAGMA foreign_keys = OFF")
	case enabled:
		tx.Exec("SET FOREIGN_KEY_CHECKS=1")
	default:
		tx.Exec("SET FOREIGN_KEY_CHECKS=0")
	}
}
