// seed_legacy genera un script SQL para poblar las tablas legacy_* a partir de la
// exportación CSV del sistema anterior (codificada en ISO-8859-1).
//
// Uso: go run ./cmd/seed_legacy [-o salida.sql] [-utf8] export.csv
//
// Cada fila empieza por la clase del registro; las listas van separadas por '|':
//
//	items,ID,PADRE,CANTIDAD_PADRE,MAT1|MAT2,"0,5|2"
//	purchases,ID,COMPRA,ITEM_O_SKU,CANTIDAD,UNIDAD,PRECIO_UNITARIO
//	sales,ID,VENTA,ITEM_O_SKU,CANTIDAD,UNIDAD,PRECIO_UNITARIO
//	assets,ID,NOMBRE,ITEM1|ITEM2,1|3
//
// Las líneas vacías y las que empiezan por '#' se ignoran. El script es idempotente:
// un registro ya cargado no se vuelve a insertar y conserva su marca de conversión.
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

const listSep = "|"

type legacyRow struct {
	class string
	id    string
	// items: padre y arreglos paralelos; líneas: compra/venta, referencia, cantidad, unidad, precio;
	// activos: nombre y arreglos paralelos.
	parent     string
	ref        string
	amount     decimal.Decimal
	unit       string
	unitPrice  decimal.Decimal
	name       string
	refs       []string
	quantities []decimal.Decimal
}

func main() {
	outPath := flag.String("o", "", "Archivo de salida (por defecto legacy_seed.sql en la raíz del módulo)")
	utf8 := flag.Bool("utf8", false, "La exportación ya viene en UTF-8")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Uso: seed_legacy [-o salida.sql] [-utf8] export.csv")
		os.Exit(1)
	}
	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	var in io.Reader = f
	if !*utf8 {
		in = transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	}
	rows, err := parseExport(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer exportación: %v\n", err)
		os.Exit(1)
	}

	path := *outPath
	if path == "" {
		path = filepath.Join(findModuleRoot(), "legacy_seed.sql")
	}
	out, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	counts, err := writeSQL(out, rows)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generado %s: %d ítems, %d compras, %d ventas, %d activos\n",
		path, counts["items"], counts["purchases"], counts["sales"], counts["assets"])
}

// parseExport lee todas las filas; un error indica la línea del CSV.
func parseExport(r io.Reader) ([]legacyRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	var rows []legacyRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		row, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		rows = append(rows, row)
	}
}

func parseRecord(rec []string) (legacyRow, error) {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	row := legacyRow{class: strings.ToLower(rec[0])}
	var err error
	switch row.class {
	case "items":
		if err := wantFields(rec, 6); err != nil {
			return row, err
		}
		row.id, row.parent = rec[1], rec[2]
		if row.amount, err = parseDecimal(rec[3], "cantidad del padre"); err != nil {
			return row, err
		}
		row.refs = splitList(rec[4])
		if row.quantities, err = parseDecimalList(rec[5]); err != nil {
			return row, err
		}
	case "purchases", "sales":
		if err := wantFields(rec, 7); err != nil {
			return row, err
		}
		row.id, row.parent, row.ref, row.unit = rec[1], rec[2], rec[3], rec[5]
		if row.ref == "" {
			return row, errors.New("referencia de ítem vacía")
		}
		if row.amount, err = parseDecimal(rec[4], "cantidad"); err != nil {
			return row, err
		}
		if row.unitPrice, err = parseDecimal(rec[6], "precio unitario"); err != nil {
			return row, err
		}
	case "assets":
		if err := wantFields(rec, 5); err != nil {
			return row, err
		}
		row.id, row.name = rec[1], rec[2]
		row.refs = splitList(rec[3])
		if row.quantities, err = parseDecimalList(rec[4]); err != nil {
			return row, err
		}
	default:
		return row, fmt.Errorf("clase desconocida %q", rec[0])
	}
	if row.id == "" {
		return row, errors.New("id vacío")
	}
	if len(row.refs) != len(row.quantities) {
		return row, fmt.Errorf("%d referencias y %d cantidades", len(row.refs), len(row.quantities))
	}
	return row, nil
}

func wantFields(rec []string, n int) error {
	if len(rec) != n {
		return fmt.Errorf("%s espera %d columnas, tiene %d", rec[0], n, len(rec))
	}
	return nil
}

func parseDecimal(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	// Las exportaciones en español usan coma decimal.
	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s inválida %q", field, s)
	}
	return d, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, listSep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseDecimalList(s string) ([]decimal.Decimal, error) {
	parts := splitList(s)
	out := make([]decimal.Decimal, 0, len(parts))
	for _, p := range parts {
		d, err := parseDecimal(p, "cantidad")
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// writeSQL escribe un INSERT por fila y devuelve el conteo por clase.
func writeSQL(w io.Writer, rows []legacyRow) (map[string]int, error) {
	counts := make(map[string]int)
	var b strings.Builder
	b.WriteString("-- Registros planos del sistema anterior\n")
	b.WriteString("-- Generado por cmd/seed_legacy; ejecutar antes de POST /api/conversions\n\n")
	b.WriteString("BEGIN;\n\n")
	for _, r := range rows {
		switch r.class {
		case "items":
			fmt.Fprintf(&b, "INSERT INTO legacy_items (id, parent_item_id, parent_amount, material_ids, material_quantities)\n")
			fmt.Fprintf(&b, "VALUES ('%s', '%s', %s, %s, %s)\n",
				escapeSQL(r.id), escapeSQL(r.parent), r.amount, textArray(r.refs), numericArray(r.quantities))
		case "purchases", "sales":
			table := "legacy_purchase_lines"
			if r.class == "sales" {
				table = "legacy_sale_lines"
			}
			fmt.Fprintf(&b, "INSERT INTO %s (id, parent_id, item_ref, amount, unit, unit_price)\n", table)
			fmt.Fprintf(&b, "VALUES ('%s', '%s', '%s', %s, '%s', %s)\n",
				escapeSQL(r.id), escapeSQL(r.parent), escapeSQL(r.ref), r.amount, escapeSQL(r.unit), r.unitPrice)
		case "assets":
			fmt.Fprintf(&b, "INSERT INTO legacy_assets (id, name, item_refs, quantities)\n")
			fmt.Fprintf(&b, "VALUES ('%s', '%s', %s, %s)\n",
				escapeSQL(r.id), escapeSQL(r.name), textArray(r.refs), numericArray(r.quantities))
		}
		b.WriteString("ON CONFLICT (id) DO NOTHING;\n")
		counts[r.class]++
	}
	b.WriteString("\nCOMMIT;\n")
	_, err := io.WriteString(w, b.String())
	return counts, err
}

func textArray(values []string) string {
	if len(values) == 0 {
		return "'{}'::text[]"
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + escapeSQL(v) + "'"
	}
	return "ARRAY[" + strings.Join(quoted, ", ") + "]::text[]"
}

func numericArray(values []decimal.Decimal) string {
	if len(values) == 0 {
		return "'{}'::numeric[]"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	return "ARRAY[" + strings.Join(parts, ", ") + "]::numeric[]"
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
