// Package types provides request and response types for the admin API.
package types

import (
	"github.com/nnnkkk7/pgcompat/pkg/compat"
	"github.com/nnnkkk7/pgcompat/pkg/diagnostic"
	"github.com/nnnkkk7/pgcompat/pkg/patch"
	"github.com/nnnkkk7/pgcompat/pkg/query"
)

// Status API Types

type StatusResponse struct {
	Success bool        `json:"success"`
	Data    *StatusData `json:"data,omitempty"`
}

type StatusData struct {
	Version            string       `json:"version"`
	Patch              patch.Status `json:"patch"`
	FunctionsInstalled bool         `json:"functionsInstalled"`
	DatabaseConnected  bool         `json:"databaseConnected"`
	BufferedRecords    int          `json:"bufferedRecords"`
}

type PatchesResponse struct {
	Success bool         `json:"success"`
	Data    []patch.Info `json:"data"`
}

type ReinstallResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    patch.Status `json:"data"`
}

// Translate API Types

// TranslateRequest lists dialect-A statements to run through the pipeline.
// An empty list translates the built-in samples.
type TranslateRequest struct {
	Statements []string `json:"statements"`
}

type TranslateResponse struct {
	Success bool              `json:"success"`
	Data    []TranslateResult `json:"data"`
}

// TranslateResult is one statement's pipeline output with its classification.
type TranslateResult struct {
	Original      string              `json:"original"`
	Transformed   string              `json:"transformed"`
	Changed       bool                `json:"changed"`
	Converted     int                 `json:"converted"`
	Malformed     []query.Occurrence  `json:"malformed,omitempty"`
	Exhausted     bool                `json:"exhausted"`
	Residual      []int               `json:"residual,omitempty"`
	ResidualCount int                 `json:"residualCount"`
	Kind          query.StatementKind `json:"kind"`
	Functions     []string            `json:"functions,omitempty"`
}

// NewTranslateResult combines a translation with the classification of its
// original text.
func NewTranslateResult(tr query.Translation, c query.Classification) TranslateResult {
	return TranslateResult{
		Original:      tr.Original,
		Transformed:   tr.Text,
		Changed:       tr.Changed(),
		Converted:     tr.Converted,
		Malformed:     tr.Malformed,
		Exhausted:     tr.Exhausted,
		Residual:      tr.Residual,
		ResidualCount: tr.ResidualCount,
		Kind:          c.Kind,
		Functions:     c.Functions,
	}
}

// Query API Types

type QueryRequest struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args,omitempty"`
}

type QueryResponse struct {
	Success bool       `json:"success"`
	Data    *QueryData `json:"data,omitempty"`
}

type QueryData struct {
	ExecutionID  string   `json:"executionId"`
	Columns      []string `json:"columns,omitempty"`
	ColumnTypes  []string `json:"columnTypes,omitempty"`
	Rows         [][]any  `json:"rows,omitempty"`
	RowsAffected int64    `json:"rowsAffected"`
}

// Diagnostics API Types

type DiagnosticsResponse struct {
	Success bool                `json:"success"`
	Data    []diagnostic.Record `json:"data"`
}

// Compatibility Function API Types

type InstallFunctionsResponse struct {
	Success bool                 `json:"success"`
	Data    compat.InstallReport `json:"data"`
}

type VerifyFunctionsResponse struct {
	Success bool                 `json:"success"`
	Passed  bool                 `json:"passed"`
	Data    []compat.CheckResult `json:"data"`
}
