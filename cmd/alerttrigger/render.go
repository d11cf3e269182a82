package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"alerttrigger/internal/domain"
	"alerttrigger/internal/trigger"

	"github.com/spf13/cobra"
)

// renderedDecision is one dry-run builder result.
type renderedDecision struct {
	APIID      string                    `json:"apiId"`
	Action     string                    `json:"action"`
	TriggerID  string                    `json:"triggerId"`
	Reason     string                    `json:"reason,omitempty"`
	Definition *domain.TriggerDefinition `json:"definition,omitempty"`
	Cancel     *domain.CancelDirective   `json:"cancel,omitempty"`
}

func renderEntry(flags *configFlags) *cobra.Command {
	var portalURL string
	cmd := &cobra.Command{
		Use:   "render [snapshot.json]",
		Short: "Print trigger decisions for API snapshots without dispatching",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read snapshot file: %w", err)
			}
			var transport domain.TransportConfig
			if flags.provided() {
				cfg, err := flags.load()
				if err != nil {
					return err
				}
				transport = cfg.Notifiers.Email.Transport()
				if !cmd.Flags().Changed("portal-url") {
					portalURL = cfg.Portal.URL
				}
			}
			return render(cmd.OutOrStdout(), raw, transport, portalURL)
		},
	}
	cmd.Flags().StringVar(&portalURL, "portal-url", "", "portal base URL (overrides config)")
	return cmd
}

// render decodes snapshots and writes builder decisions as indented JSON.
// Params: output writer, one snapshot object or array, transport, and portal URL.
// Returns: decode or write error.
func render(out io.Writer, raw []byte, transport domain.TransportConfig, portalURL string) error {
	snapshots, err := decodeSnapshotFile(raw)
	if err != nil {
		return err
	}
	results := make([]renderedDecision, 0, len(snapshots))
	for _, api := range snapshots {
		decision := trigger.Build(api, transport, portalURL)
		result := renderedDecision{
			APIID:     api.ID,
			Action:    decision.Action.String(),
			TriggerID: decision.TriggerID,
			Reason:    decision.Reason,
		}
		switch decision.Action {
		case trigger.ActionActivate:
			definition := decision.Definition
			result.Definition = &definition
		case trigger.ActionDeactivate:
			cancel := domain.NewCancelDirective(decision.TriggerID)
			result.Cancel = &cancel
		}
		results = append(results, result)
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func decodeSnapshotFile(raw []byte) ([]domain.APISnapshot, error) {
	payload := bytes.TrimSpace(raw)
	if len(payload) == 0 {
		return nil, errors.New("snapshot file is empty")
	}
	if payload[0] == '[' {
		return domain.DecodeSnapshots(payload)
	}
	var api domain.APISnapshot
	if err := json.Unmarshal(payload, &api); err != nil {
		return nil, fmt.Errorf("decode api snapshot: %w", err)
	}
	if err := api.Validate(); err != nil {
		return nil, err
	}
	return []domain.APISnapshot{api}, nil
}
