package student

import "sort"

// FigmaStatusField is the legacy checklist field holding the figma access status.
const FigmaStatusField = "figmaStatus"

type fieldMapping struct {
	Field  string
	ItemID int
	Label  string
}

// booleanFields maps the legacy checklist flags to checklist item ids.
var booleanFields = []fieldMapping{
	{Field: "addedCommunity", ItemID: 1, Label: "Added to the community"},
	{Field: "sentWelcomeEmail", ItemID: 2, Label: "Welcome email sent"},
	{Field: "joinedWhatsapp", ItemID: 3, Label: "Joined the WhatsApp group"},
	{Field: "sentContract", ItemID: 4, Label: "Contract sent"},
	{Field: "signedContract", ItemID: 5, Label: "Contract signed"},
	{Field: "paidDeposit", ItemID: 6, Label: "Deposit paid"},
	{Field: "paidInFull", ItemID: 7, Label: "Paid in full"},
	{Field: "sentSchedule", ItemID: 8, Label: "Schedule sent"},
	{Field: "attendedOrientation", ItemID: 9, Label: "Attended orientation"},
	{Field: "submittedPortfolio", ItemID: 10, Label: "Portfolio submitted"},
	{Field: "issuedCertificate", ItemID: 11, Label: "Certificate issued"},
}

// figmaStatuses maps the mutually exclusive figma status values to checklist item ids.
var figmaStatuses = []fieldMapping{
	{Field: "Approved", ItemID: 12, Label: "Figma access approved"},
	{Field: "Pending", ItemID: 13, Label: "Figma access pending"},
	{Field: "Rejected", ItemID: 14, Label: "Figma access rejected"},
	{Field: "Not Requested", ItemID: 15, Label: "Figma access not requested"},
}

// Catalog returns the checklist items the legacy fields map to, ordered by id.
func Catalog() []Item {
	items := make([]Item, 0, len(booleanFields)+len(figmaStatuses))
	for _, m := range booleanFields {
		items = append(items, Item{ID: m.ItemID, Label: m.Label})
	}
	for _, m := range figmaStatuses {
		items = append(items, Item{ID: m.ItemID, Label: m.Label})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// ItemIDs extracts the ids of the completed checklist items.
// A flag counts only when it is strictly true; the figma status contributes at most one id.
func (cl Checklist) ItemIDs() []int {
	if cl == nil {
		return nil
	}
	var ids []int
	for _, m := range booleanFields {
		if done, ok := cl[m.Field].(bool); ok && done {
			ids = append(ids, m.ItemID)
		}
	}
	if status, ok := cl[FigmaStatusField].(string); ok {
		for _, m := range figmaStatuses {
			if m.Field == status {
				ids = append(ids, m.ItemID)
				break
			}
		}
	}
	return ids
}

// MissingItems returns the catalog ids not present in ids.
func MissingItems(ids []int) []int {
	have := make(map[int]bool, len(ids))
	for _, id := range ids {
		have[id] = true
	}
	var missing []int
	for _, it := range Catalog() {
		if !have[it.ID] {
			missing = append(missing, it.ID)
		}
	}
	return missing
}
