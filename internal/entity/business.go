package entity

import (
	"encoding/json"
	"os"
)

type Contact struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type BusinessProfile struct {
	Offer      string    `json:"offer"`
	OfferValue string    `json:"offer_value"`
	Seller     string    `json:"seller"`
	Contacts   []Contact `json:"contacts"`
}

type IdealUser struct {
	Type       string   `json:"type"`
	Revenue    string   `json:"revenue"`
	PainPoints []string `json:"pain_points"`
}

type QualificationProfile struct {
	IdealUser      IdealUser         `json:"ideal_user"`
	NonIdealRoutes map[string]string `json:"non_ideal_routes"`
}

func DefaultBusinessProfile() BusinessProfile {
	return BusinessProfile{
		Offer:      "30-minute growth strategy call",
		OfferValue: "Diagnose your bottlenecks + outline 3 ways to grow revenue",
		Seller:     "Obelisk Acquisitions",
		Contacts: []Contact{
			{Name: "Vaishakh", Role: "Closer / Strategy Head"},
			{Name: "Aryan", Role: "Fulfillment / Onboarding"},
		},
	}
}

func DefaultQualificationProfile() QualificationProfile {
	return QualificationProfile{
		IdealUser: IdealUser{
			Type:       "agency or B2B SaaS founder",
			Revenue:    "above $10k/month",
			PainPoints: []string{"lead flow", "offer not converting", "wants scaling clarity"},
		},
		NonIdealRoutes: map[string]string{
			"cold_sellers":           "Aryan",
			"job seekers":            "Ignore or send canned TTS",
			"generic service offers": "Aryan",
		},
	}
}

// LoadBusinessProfile returns the roster and offer the agent sells. A JSON
// file pointed to by BUSINESS_PROFILE_PATH overrides the defaults.
func LoadBusinessProfile() (BusinessProfile, QualificationProfile, error) {
	business := DefaultBusinessProfile()
	qualification := DefaultQualificationProfile()

	path := os.Getenv("BUSINESS_PROFILE_PATH")
	if path == "" {
		return business, qualification, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return business, qualification, err
	}

	var override struct {
		Business      *BusinessProfile      `json:"business"`
		Qualification *QualificationProfile `json:"qualification"`
	}
	if err := json.Unmarshal(data, &override); err != nil {
		return business, qualification, err
	}

	if override.Business != nil {
		business = *override.Business
	}
	if override.Qualification != nil {
		qualification = *override.Qualification
	}

	return business, qualification, nil
}
