package models

import "math"

// RoundAmount rounds a money value to cents. Totals are rounded after every
// change so that comparisons against the goal are exact.
func RoundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}

// InitialStatus is Approved for campaigns created by an administrator and
// Pending for everyone else.
func InitialStatus(creatorIsAdmin bool) CampaignStatus {
	if creatorIsAdmin {
		return StatusApproved
	}
	return StatusPending
}

// ModerationSources lists the statuses from which a moderator may move a
// campaign to target. Re-applying the current status is accepted as a no-op.
func ModerationSources(target CampaignStatus) []CampaignStatus {
	if target == StatusPending {
		return []CampaignStatus{StatusPending}
	}
	return []CampaignStatus{StatusPending, target}
}

// CanModerate reports whether a campaign in status from may be moved to target.
func CanModerate(from, target CampaignStatus) bool {
	for _, s := range ModerationSources(target) {
		if s == from {
			return true
		}
	}
	return false
}

// TopDonorName returns the donor of the single largest donation. Ties go to
// the donation stored first.
func TopDonorName(donations []Donation) string {
	top := -1
	for i, d := range donations {
		if top < 0 || d.Amount > donations[top].Amount {
			top = i
		}
	}
	if top < 0 {
		return ""
	}
	return donations[top].DonorName
}

// ApplyDonation records d against the campaign totals. It returns false and
// leaves c untouched when d.Amount exceeds the remaining amount.
func (c *Campaign) ApplyDonation(d Donation) bool {
	d.Amount = RoundAmount(d.Amount)
	if d.Amount > RoundAmount(c.RemainingAmount) {
		return false
	}
	c.RemainingAmount = RoundAmount(c.RemainingAmount - d.Amount)
	c.AmountRaised = RoundAmount(c.AmountRaised + d.Amount)
	c.Donations = append(c.Donations, d)
	if c.AmountRaised >= RoundAmount(c.Goal) {
		c.Status = StatusCompleted
	}
	c.TopDonor = TopDonorName(c.Donations)
	return true
}

// ApplyEdit overwrites the editable fields and recomputes the remaining
// amount. It returns false and leaves c untouched when the new goal is below
// what has already been raised, or when it changes the goal of a completed
// campaign.
func (c *Campaign) ApplyEdit(e CampaignEdit) bool {
	e.Goal = RoundAmount(e.Goal)
	if !c.GoalEditable(e.Goal) {
		return false
	}
	c.Title = e.Title
	c.Country = e.Country
	c.ZipCode = e.ZipCode
	c.Description = e.Description
	c.Recipient = e.Recipient
	c.Goal = e.Goal
	if e.Image != "" {
		c.Image = e.Image
	}
	c.RemainingAmount = RoundAmount(c.Goal - c.AmountRaised)
	if c.Status == StatusApproved && c.AmountRaised >= c.Goal {
		c.Status = StatusCompleted
	}
	return true
}

// GoalEditable reports whether goal may replace the current goal. A completed
// campaign keeps its goal; other edits to it are still allowed.
func (c *Campaign) GoalEditable(goal float64) bool {
	if c.Status == StatusCompleted && goal != RoundAmount(c.Goal) {
		return false
	}
	return goal >= RoundAmount(c.AmountRaised)
}

// DonorCount is the number of recorded donations.
func (c *Campaign) DonorCount() int {
	return len(c.Donations)
}
