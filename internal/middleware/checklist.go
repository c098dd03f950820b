package middleware

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/conversation"
)

// timeNow is replaced in tests.
var timeNow = time.Now

// GeneralConsultation is used when no matter type has been established.
const GeneralConsultation = "General Consultation"

type documentList struct {
	required []string
	optional []string
}

var documentTable = map[string]documentList{
	"Family Law": {
		required: []string{"Marriage certificate", "Recent tax returns (last 2 years)", "Pay stubs or proof of income", "List of shared assets and debts"},
		optional: []string{"Prenuptial agreement", "Children's school and medical records", "Existing custody or support orders"},
	},
	"Employment Law": {
		required: []string{"Employment contract or offer letter", "Recent pay stubs", "Termination or disciplinary notices", "Timesheets or schedules"},
		optional: []string{"Performance reviews", "Emails or messages with your employer", "Employee handbook"},
	},
	"Landlord/Tenant": {
		required: []string{"Lease agreement", "Rent payment records", "Notices from your landlord"},
		optional: []string{"Move-in inspection report", "Photos of the property", "Repair requests"},
	},
	"Personal Injury": {
		required: []string{"Accident or police report", "Medical records and bills", "Photos of injuries and the scene"},
		optional: []string{"Witness contact details", "Insurance correspondence", "Proof of lost wages"},
	},
	"Criminal Law": {
		required: []string{"Charging documents or citation", "Bail or release paperwork", "Court dates and notices"},
		optional: []string{"Police report", "Witness contact details"},
	},
	"Business Law": {
		required: []string{"Formation documents", "Relevant contracts", "Correspondence about the dispute"},
		optional: []string{"Financial statements", "Operating or partnership agreement"},
	},
	"Estate Planning": {
		required: []string{"List of assets and accounts", "Beneficiary information", "Existing will or trust"},
		optional: []string{"Deeds and titles", "Life insurance policies"},
	},
	"Immigration Law": {
		required: []string{"Passport", "Current visa or immigration documents", "Notices from immigration authorities"},
		optional: []string{"Employment letters", "Birth and marriage certificates"},
	},
	"Bankruptcy": {
		required: []string{"List of debts and creditors", "Recent tax returns", "Pay stubs", "Bank statements"},
		optional: []string{"Collection letters", "Property valuations"},
	},
	"Intellectual Property": {
		required: []string{"Description or samples of the work", "Registration certificates", "Evidence of infringement"},
		optional: []string{"Licensing agreements", "Correspondence with the other party"},
	},
	GeneralConsultation: {
		required: []string{"Government-issued ID", "Any documents related to your issue"},
		optional: []string{"A written timeline of events", "Contact details of anyone involved"},
	},
}

var documentRequestPattern = regexp.MustCompile(`(?i)\b((what|which)\s+(documents?|papers?|paperwork|forms?|records?)|documents?\s+(do|should|will)\s+i\s+need|document\s+(checklist|list)|what\s+(should|do)\s+i\s+(need\s+to\s+)?(bring|gather|prepare))\b`)

// DocumentChecklist answers document requests with a static per-matter list.
type DocumentChecklist struct{}

func (DocumentChecklist) Name() string { return "document_checklist" }

func (DocumentChecklist) Handle(_ context.Context, in Input) Output {
	if !documentRequestPattern.MatchString(conversation.LastUserMessage(in.Messages)) {
		return Output{Context: in.Context}
	}

	matter := in.Context.PrimaryMatter()
	list, ok := documentTable[matter]
	if !ok {
		matter = GeneralConsultation
		list = documentTable[GeneralConsultation]
	}

	out := in.Context
	out.DocumentChecklist = &conversation.DocumentChecklist{
		MatterType: matter,
		Required:   append([]string(nil), list.required...),
		Optional:   append([]string(nil), list.optional...),
		CreatedAt:  timeNow().UTC(),
	}
	return Output{Context: out, Response: renderChecklist(*out.DocumentChecklist), ShouldStop: true}
}

func renderChecklist(c conversation.DocumentChecklist) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Here is a document checklist for your %s matter.\n\nRequired documents:\n", c.MatterType)
	for _, d := range c.Required {
		fmt.Fprintf(&sb, "- %s\n", d)
	}
	if len(c.Optional) > 0 {
		sb.WriteString("\nHelpful if you have them:\n")
		for _, d := range c.Optional {
			fmt.Fprintf(&sb, "- %s\n", d)
		}
	}
	sb.WriteString("\nYou can upload any of these whenever you're ready.")
	return sb.String()
}
