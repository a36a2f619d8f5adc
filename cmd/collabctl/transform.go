package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/collabtext/core/pkg/ot"
)

var (
	transformContent string
	transformUserID  string
	transformMissed  string
)

// transformCmd exercises pkg/ot.Transform directly against a document
// state and a set of missed operations read as JSON, without a server
// or a websocket client. This is the direct replacement for the
// teacher's cmd/ot-wasm and cmd/ot-wasm-bridge: both existed solely to
// expose the (now-replaced) rustpad-algebra transformer to a browser
// via syscall/js; a server-only core has no browser to bridge to, so
// the replacement is a terminal entry point for exercising the new
// transform algebra locally instead.
var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Transform one edit against missed operations and print the result",
	Long: `transform reads an incoming edit from stdin (JSON: {"position",
"insert_text","delete_len","base_version"}) plus --missed (a JSON array
of the same shape, each also carrying "user_id"), transforms the
incoming edit against them in order, applies the result to --content,
and prints the resulting document text and the transformed edit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var incoming ot.Edit
		if err := json.NewDecoder(os.Stdin).Decode(&incoming); err != nil {
			return fmt.Errorf("transform: decoding incoming edit from stdin: %w", err)
		}

		var missed []ot.AppliedOp
		if transformMissed != "" {
			if err := json.Unmarshal([]byte(transformMissed), &missed); err != nil {
				return fmt.Errorf("transform: decoding --missed: %w", err)
			}
		}

		transformed := ot.Transform(incoming, transformUserID, missed)
		result := ot.ApplyOperation(transformContent, transformed.Position, transformed.DeleteLen, transformed.InsertText)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"transformed_edit": transformed,
			"result_content":   result,
		})
	},
}

func init() {
	transformCmd.Flags().StringVar(&transformContent, "content", "", "document content the edit applies to")
	transformCmd.Flags().StringVar(&transformUserID, "user-id", "", "user ID of the incoming edit, for tie-break comparisons")
	transformCmd.Flags().StringVar(&transformMissed, "missed", "[]", "JSON array of missed operations")
}
