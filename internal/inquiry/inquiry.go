// Package inquiry builds the prefilled WhatsApp messages visitors send
// when they ask about a pricing plan.
package inquiry

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnknownPlan is returned for a plan name not in Plans.
var ErrUnknownPlan = errors.New("unknown plan")

// Plan is one published pricing tier.
type Plan struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Students string `json:"students"`
}

// Plans lists the published tiers in display order.
var Plans = []Plan{
	{ID: "starter", Name: "Starter", Price: "₦500,000", Students: "up to 200 students"},
	{ID: "professional", Name: "Professional", Price: "₦1,200,000", Students: "up to 1,000 students"},
	{ID: "enterprise", Name: "Enterprise", Price: "₦2,500,000", Students: "unlimited students"},
}

// Lookup finds a plan by ID or display name, case-insensitively.
func Lookup(name string) (Plan, error) {
	name = strings.TrimSpace(name)
	for _, p := range Plans {
		if strings.EqualFold(p.ID, name) || strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, name)
}

// Message renders the inquiry text for p.
func Message(p Plan) string {
	return fmt.Sprintf("Hi! I'm interested in the %s plan for %s (%s). Can you provide more details about this plan?",
		p.Name, p.Price, p.Students)
}

// WhatsAppURL returns a wa.me deep link that opens a chat with phone and the
// inquiry for p already typed.
func WhatsAppURL(phone string, p Plan) string {
	return "https://wa.me/" + phone + "?text=" + url.QueryEscape(Message(p))
}
