// Example: Using pgcompat as an Embedded Library
//
// This example wraps a database session with the resilient executor and runs
// MySQL-dialect statements through it. An in-memory DuckDB database stands in
// for PostgreSQL: it accepts the translated SQL and, like PostgreSQL, refuses
// further statements in a transaction after an error until it is rolled back.
//
// Run this example:
//
//	go run ./example/embedded
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/nnnkkk7/pgcompat/pkg/connection"
	"github.com/nnnkkk7/pgcompat/pkg/diagnostic"
	"github.com/nnnkkk7/pgcompat/pkg/patch"
	"github.com/nnnkkk7/pgcompat/pkg/query"
)

func main() {
	fmt.Println("=== pgcompat Embedded Example ===")
	fmt.Println()

	ctx := context.Background()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		log.Fatalf("Failed to open DuckDB: %v", err)
	}
	defer db.Close()

	mgr := connection.NewManager(db)
	if _, err := mgr.Exec(ctx, `CREATE TABLE "tabSales Invoice" (
		name VARCHAR PRIMARY KEY,
		customer VARCHAR,
		grand_total DECIMAL(18, 2),
		outstanding_amount DECIMAL(18, 2),
		discount DECIMAL(18, 2)
	)`); err != nil {
		log.Fatalf("Failed to create table: %v", err)
	}

	sess, err := mgr.OpenSession(ctx)
	if err != nil {
		log.Fatalf("Failed to open session: %v", err)
	}
	defer sess.Close()

	// Collect diagnostics in memory
	buffer := diagnostic.NewBuffer(time.Hour)
	defer buffer.Close()

	translator := query.NewTranslator(query.WithDiagnostics(buffer))
	registry := patch.NewRegistry(sess)
	registry.Install(query.Wrap(translator,
		query.WithNormalizer(query.NewPostgresNormalizer()),
		query.WithSink(buffer),
	))

	exec := registry.Current()

	// Example 1: Insert rows with ? placeholders
	fmt.Println("1. Inserting invoices...")
	for _, inv := range []struct {
		name, customer     string
		total, outstanding float64
	}{
		{"SINV-0001", "Acme", 1200, 0},
		{"SINV-0002", "Globex", 800, 300},
		{"SINV-0003", "Acme", 450, 450},
	} {
		_, err := exec.Execute(ctx,
			"INSERT INTO `tabSales Invoice` (name, customer, grand_total, outstanding_amount) VALUES (?, ?, ?, ?)",
			inv.name, inv.customer, inv.total, inv.outstanding)
		if err != nil {
			log.Fatalf("Failed to insert: %v", err)
		}
	}
	if err := exec.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}
	fmt.Println("   Inserted 3 invoices")

	// Example 2: Conditional expressions, IFNULL and index hints
	stmt := "SELECT customer, SUM(IF(outstanding_amount > 0, outstanding_amount, 0)) AS due, " +
		"SUM(IFNULL(discount, 0)) AS discount " +
		"FROM `tabSales Invoice` FORCE INDEX (customer) GROUP BY customer ORDER BY customer"
	fmt.Println("\n2. Running a MySQL-dialect report query...")
	fmt.Printf("   Translated: %s\n", translator.Rewrite(stmt))

	result, err := exec.Execute(ctx, stmt)
	if err != nil {
		log.Fatalf("Failed to query: %v", err)
	}
	for _, row := range result.Rows {
		fmt.Printf("   %v\n", row)
	}
	_ = exec.Commit(ctx)

	// Example 3: A failed statement aborts the transaction; the next
	// statement is retried after a rollback
	fmt.Println("\n3. Recovering from an aborted transaction...")
	if _, err := exec.Execute(ctx,
		"INSERT INTO `tabSales Invoice` (name, customer, grand_total) VALUES ('SINV-0001', 'Duplicate', 1)"); err != nil {
		fmt.Printf("   Insert failed as expected: %v\n", err)
	}

	result, err = exec.Execute(ctx, "SELECT COUNT(*) FROM `tabSales Invoice`")
	if err != nil {
		log.Fatalf("Failed to query after abort: %v", err)
	}
	fmt.Printf("   Invoice count after recovery: %v\n", result.Rows[0][0])
	_ = exec.Commit(ctx)

	// Example 4: Diagnostics
	fmt.Println("\n4. Diagnostics:")
	for _, rec := range buffer.List("", 0) {
		fmt.Printf("   [%s] %s\n", rec.Kind, rec.Title)
	}

	fmt.Printf("\nPatch status: %+v\n", registry.Status())
	fmt.Println("\n=== Example Complete ===")
}
