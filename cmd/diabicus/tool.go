package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/njchilds90/diabicus"
	"github.com/spf13/cobra"
)

const maxRequestBytes = 1 << 20 // 1 MiB

var printSchema bool

var toolCmd = &cobra.Command{
	Use:   "tool",
	Short: "Answer one JSON tool call from stdin",
	Long: `Reads a single {"tool": ..., "params": {...}} request from stdin and
writes the JSON response to stdout. --schema prints the tool schema instead.`,
	Args: cobra.NoArgs,
	RunE: runTool,
}

func init() {
	toolCmd.Flags().BoolVar(&printSchema, "schema", false, "Print the tool schema and exit")
}

func runTool(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	if printSchema {
		fmt.Fprintln(w, diabicus.ToolSpec())
		return nil
	}

	dec := json.NewDecoder(io.LimitReader(cmd.InOrStdin(), maxRequestBytes))
	dec.DisallowUnknownFields()
	var req diabicus.ToolRequest
	if err := dec.Decode(&req); err != nil {
		return writeToolResponse(w, diabicus.ToolResponse{Error: err.Error()})
	}
	// Ensure there's no trailing junk.
	if dec.More() {
		return writeToolResponse(w, diabicus.ToolResponse{Error: "invalid JSON: trailing data"})
	}

	eval := diabicus.NewEvaluator(diabicus.WithAngleMode(cfg.AngleMode), diabicus.WithEvaluatorLogger(logger))
	h := diabicus.NewToolHandler(eval, diabicus.NewFormatter(cfg.DisplayDigits))
	return writeToolResponse(w, h.Handle(req))
}

func writeToolResponse(w io.Writer, resp diabicus.ToolResponse) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	return nil
}
