// inventoryctl tareas de mantenimiento del inventario desde la línea de comandos:
// reconciliación de stock y conversión de relaciones legadas.
//
// Usa la misma configuración que la API (variables de entorno, .env o config.*).
//
//	inventoryctl rebuild <item-id>
//	inventoryctl rebuild-all
//	inventoryctl convert [--wait]
//	inventoryctl convert-status <job-id>
//	inventoryctl token --role admin
package main

import (
	"context"
	"os"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
