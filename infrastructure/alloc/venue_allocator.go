package alloc

import (
	"context"
	"sort"

	"github.com/andreesc15/tabbycat/internal/domain"
	"github.com/andreesc15/tabbycat/internal/ports"
)

var _ ports.VenueAllocator = (*VenueAllocator)(nil)

// VenueAllocator assigns venues to debates strictly in importance order,
// best venue first, skipping venues whose categories do not cover a
// debate's requirements. Debates that match no remaining venue are left
// venue-less and reported, not fatal.
type VenueAllocator struct{}

// NewVenueAllocator creates a VenueAllocator.
func NewVenueAllocator() *VenueAllocator { return &VenueAllocator{} }

// Allocate runs one full assignment pass over the round's debates.
func (a *VenueAllocator) Allocate(
	ctx context.Context,
	debates []domain.Debate,
	venues []domain.Venue,
) (*ports.VenueAllocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ranked := make([]domain.Venue, len(venues))
	copy(ranked, venues)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Priority != ranked[j].Priority {
			return ranked[i].Priority > ranked[j].Priority
		}
		return ranked[i].ID < ranked[j].ID
	})

	ordered := make([]domain.Debate, len(debates))
	copy(ordered, debates)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Importance != ordered[j].Importance {
			return ordered[i].Importance > ordered[j].Importance
		}
		return ordered[i].ID < ordered[j].ID
	})

	taken := make(map[domain.VenueID]bool, len(ranked))
	result := &ports.VenueAllocation{
		Assignments: make(map[domain.DebateID]domain.VenueID, len(ordered)),
	}

	for _, debate := range ordered {
		assigned := false
		for _, venue := range ranked {
			if taken[venue.ID] || !venue.HasCategories(debate.RequiredVenueCategories) {
				continue
			}
			taken[venue.ID] = true
			result.Assignments[debate.ID] = venue.ID
			assigned = true
			break
		}
		if !assigned {
			result.Unassigned = append(result.Unassigned, debate.ID)
		}
	}

	sort.Slice(result.Unassigned, func(i, j int) bool { return result.Unassigned[i] < result.Unassigned[j] })
	return result, nil
}
