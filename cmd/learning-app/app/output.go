package app

import (
	"encoding/json"

	"github.com/spf13/cobra"
	syncdomain "learning-app-go/internal/domain/sync"
)

type resultOutput struct {
	Outcome     syncdomain.Outcome `json:"outcome"`
	Error       string             `json:"error,omitempty"`
	RemoteError string             `json:"remoteError,omitempty"`
}

type viewResultOutput struct {
	resultOutput
	View syncdomain.View `json:"view"`
}

type flushOutput struct {
	resultOutput
	Synced    int   `json:"synced"`
	Rejected  int   `json:"rejected"`
	Remaining int64 `json:"remaining"`
}

type statusOutput struct {
	Phase        syncdomain.Phase `json:"phase"`
	IsOffline    bool             `json:"isOffline"`
	Lessons      int              `json:"lessons"`
	PendingCount int64            `json:"pendingCount"`
	LastError    string           `json:"lastError,omitempty"`
}

func newResultOutput(result syncdomain.Result) resultOutput {
	out := resultOutput{Outcome: result.Outcome}
	if result.Err != nil {
		out.Error = result.Err.Error()
	}
	if result.RemoteErr != nil {
		out.RemoteError = result.RemoteErr.Error()
	}
	return out
}

// printResult writes the result and view, and fails the command only when
// nothing was committed locally.
func printResult(cmd *cobra.Command, result syncdomain.Result, view syncdomain.View) error {
	if err := printJSON(cmd, viewResultOutput{resultOutput: newResultOutput(result), View: view}); err != nil {
		return err
	}
	return result.Err
}

func printJSON(cmd *cobra.Command, payload any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
