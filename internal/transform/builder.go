// Package transform turns fetched product metadata into STAC items.
// Item generation itself is delegated to an external generator; this
// package wraps the invocation and fixes up the result for the
// catalogue.
package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Builder produces the STAC item JSON for the product metadata
// rooted at workDir.
type Builder interface {
	BuildItem(ctx context.Context, workDir string) ([]byte, error)
}

// CommandBuilder delegates item generation to an external command.
// The command receives the metadata directory as its last argument
// and must print the item JSON on stdout.
type CommandBuilder struct {
	Command string
	Args    []string
}

// BuildItem runs the generator and validates its output.
func (b *CommandBuilder) BuildItem(ctx context.Context, workDir string) ([]byte, error) {
	if b.Command == "" {
		return nil, fmt.Errorf("no item generator command configured")
	}
	args := append(append([]string{}, b.Args...), workDir)
	cmd := exec.CommandContext(ctx, b.Command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("item generator failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("item generator failed: %w", err)
	}

	item := stdout.Bytes()
	if _, err := ItemID(item); err != nil {
		return nil, err
	}
	return item, nil
}

// ItemID extracts the id of a STAC item document.
func ItemID(item []byte) (string, error) {
	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(item, &parsed); err != nil {
		return "", fmt.Errorf("item is not valid JSON: %w", err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("item has no id field")
	}
	return parsed.ID, nil
}
