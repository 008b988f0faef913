// path: internal/scheduler/inventory.go
package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
)

// Inventory is the classified set of ready artifacts for one workspace.
type Inventory struct {
	Short []*content.Artifact
	Long  []*content.Artifact
}

// Total returns the artifact count across both forms.
func (inv *Inventory) Total() int { return len(inv.Short) + len(inv.Long) }

// Scanner enumerates ready artifacts and classifies them by form.
type Scanner struct {
	artifacts content.ArtifactRepository
}

// NewScanner creates an inventory scanner over the artifact store.
func NewScanner(artifacts content.ArtifactRepository) *Scanner {
	return &Scanner{artifacts: artifacts}
}

// Scan returns the unconsumed inventory in ready order. Short iff
// duration <= 60s.
func (s *Scanner) Scan(ctx context.Context, workspaceID uuid.UUID) (*Inventory, error) {
	ready, err := s.artifacts.FindReady(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("%w: scanning inventory: %v", common.ErrUnavailable, err)
	}

	inv := &Inventory{}
	for _, a := range ready {
		if a.IsConsumed() {
			continue
		}
		if a.Form() == content.FormShort {
			inv.Short = append(inv.Short, a)
		} else {
			inv.Long = append(inv.Long, a)
		}
	}
	return inv, nil
}
