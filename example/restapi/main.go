// Example: Using the pgcompat Admin API
//
// This example previews translations, runs a statement through the resilient
// executor and lists the recorded diagnostics over HTTP.
//
// Start the server:
//
//	go run ./cmd/pgcompat serve --driver duckdb
//
// Then run this example:
//
//	go run ./example/restapi
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
)

var baseURL = getBaseURL()

func getBaseURL() string {
	host := os.Getenv("PGCOMPAT_HOST")
	if host == "" {
		host = "localhost:8080"
	}
	return fmt.Sprintf("http://%s/api/v1", host)
}

// TranslateResult is one statement's translation
type TranslateResult struct {
	Original      string   `json:"original"`
	Transformed   string   `json:"transformed"`
	Converted     int      `json:"converted"`
	ResidualCount int      `json:"residualCount"`
	Kind          string   `json:"kind"`
	Functions     []string `json:"functions"`
}

// QueryData is the result of an executed statement
type QueryData struct {
	ExecutionID  string   `json:"executionId"`
	Columns      []string `json:"columns"`
	Rows         [][]any  `json:"rows"`
	RowsAffected int64    `json:"rowsAffected"`
}

// Record is a diagnostic record
type Record struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Title string `json:"title"`
}

func main() {
	fmt.Println("=== pgcompat Admin API Example ===")
	fmt.Println()

	// Example 1: Preview translations
	fmt.Println("1. Translating statements...")
	var translated struct {
		Data []TranslateResult `json:"data"`
	}
	if err := post("/translate", map[string]any{
		"statements": []string{
			"SELECT name, IF(docstatus = 1, 'Submitted', 'Draft') FROM tabItem",
			"SELECT IFNULL(SUM(qty), 0) FROM `tabBin` USE INDEX (item_code)",
		},
	}, &translated); err != nil {
		log.Fatalf("Failed to translate: %v", err)
	}
	for _, res := range translated.Data {
		fmt.Printf("   %s\n   -> %s (%d converted, kind %s)\n", res.Original, res.Transformed, res.Converted, res.Kind)
	}

	// Example 2: Execute through the resilient executor
	fmt.Println("\n2. Executing a statement...")
	var executed struct {
		Success bool      `json:"success"`
		Message string    `json:"message"`
		Data    QueryData `json:"data"`
	}
	if err := post("/query", map[string]any{
		"sql":  "SELECT IF(? > 10, 'bulk', 'single') AS order_type",
		"args": []any{25},
	}, &executed); err != nil {
		log.Fatalf("Failed to execute: %v", err)
	}
	if !executed.Success {
		log.Fatalf("Query failed: %s", executed.Message)
	}
	fmt.Printf("   %v %v\n", executed.Data.Columns, executed.Data.Rows)

	// Example 3: Diagnostics
	fmt.Println("\n3. Listing diagnostics...")
	var diagnostics struct {
		Data []Record `json:"data"`
	}
	if err := get("/diagnostics?limit=10", &diagnostics); err != nil {
		log.Fatalf("Failed to list diagnostics: %v", err)
	}
	for _, rec := range diagnostics.Data {
		fmt.Printf("   [%s] %s\n", rec.Kind, rec.Title)
	}

	fmt.Println("\n=== Example Complete ===")
}

func post(path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func get(path string, out any) error {
	resp, err := http.Get(baseURL + path)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unexpected response (%d): %s", resp.StatusCode, data)
	}
	return nil
}
