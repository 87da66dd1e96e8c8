package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"gopos/config"
	"gopos/internal/pkg/database"
	"gopos/internal/pkg/logger"
)

// Uso: migrate [-dir ./sql] [-v] [up|down|status|version|redo|reset|up-to N ...]
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ Aviso: Arquivo .env não encontrado. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig()
	appLog := logger.NewLogger(cfg.LogLevel)

	defaultDir := os.Getenv("MIGRATIONS_DIR")
	if defaultDir == "" {
		defaultDir = "./sql"
	}
	migrationsDir := flag.String("dir", defaultDir, "diretório das migrações do GoPOS (padrão: $MIGRATIONS_DIR ou ./sql)")
	verbose := flag.Bool("v", false, "imprime cada migração aplicada")
	flag.Parse()

	if cfg.StoreDriver == "memory" {
		appLog.Warn("STORE_DRIVER=memory não usa banco; migrando mesmo assim o DATABASE_URL configurado.", nil)
	}

	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		appLog.Fatal("Migração: falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()

	goose.SetVerbose(*verbose)
	if err := goose.SetDialect("postgres"); err != nil {
		appLog.Fatal("Migração: dialeto não suportado.", err)
	}

	arguments := flag.Args()
	if len(arguments) == 0 {
		arguments = []string{"up"}
	}
	command, args := arguments[0], arguments[1:]

	appLog.Info("Executando migração do schema GoPOS.", map[string]interface{}{"command": command, "dir": *migrationsDir})
	// goose trabalha sobre *sql.DB; sqlx expõe o pool em db.DB.
	if err := goose.Run(command, db.DB, *migrationsDir, args...); err != nil {
		appLog.Fatal("Migração: comando "+command+" falhou.", err)
	}
	appLog.Info("Migração concluída.", map[string]interface{}{"command": command})
}
