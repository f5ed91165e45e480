// migrate aplica o revierte el esquema embebido en el binario.
//
// Uso: go run ./cmd/migrate [up|down|version]
// Toma la conexión de DATABASE_URL o DB_HOST/DB_PORT/... igual que la API.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/inventario-bom/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-bom/pkg/config"
	"github.com/jhoicas/inventario-bom/pkg/logger"
)

func main() {
	confirm := flag.Bool("confirm", false, "Requerido para down")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	if err := run(command, *confirm); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
		os.Exit(1)
	}
}

func run(command string, confirm bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	m, err := postgres.NewMigrator(cfg.DB.ConnectionString(), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn().Err(err).Msg("cerrar migrador")
		}
	}()

	switch command {
	case "up":
		return m.Up()
	case "down":
		if !confirm {
			return errors.New("down elimina todas las tablas; repetir con -confirm")
		}
		return m.Down()
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("versión %d (dirty=%t)\n", version, dirty)
		return nil
	}
	printUsage()
	return errors.New("comando desconocido")
}

func printUsage() {
	fmt.Println(`Migraciones de base de datos

Uso:
  migrate [-confirm] <up|down|version>

Comandos:
  up        Aplica las migraciones pendientes
  down      Revierte todas las migraciones (requiere -confirm)
  version   Muestra la versión actual del esquema`)
}
