package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Huzefaaa2/AIOps/internal/models"
)

const systemInstruction = "You are an AIOps reasoning agent. You must:\n" +
	"1) Correlate metrics, logs and incidents.\n" +
	"2) Explain the likely root cause succinctly.\n" +
	"3) Propose a JSON plan with safe remediation actions.\n" +
	"Only return a JSON object in your final response."

const outputSchema = "Return a strict JSON object with the following schema:\n" +
	"{\n" +
	"  \"rca_summary\": \"string summarising the suspected root cause\",\n" +
	"  \"confidence\": number between 0 and 1,\n" +
	"  \"actions\": [\n" +
	"     {\"name\": \"action_name\", \"params\": {\"key\": \"value\"}, \"risk\": \"low|medium|high\", \"rationale\": \"why\"}\n" +
	"  ],\n" +
	"  \"citations\": [\"document ids from CONTEXT_KB that support the analysis\"]\n" +
	"}"

// PromptBudget bounds the generation request size.
type PromptBudget struct {
	// MaxBytes caps the assembled user message.
	MaxBytes int
	// MaxDocChars caps each document excerpt.
	MaxDocChars int
	// MaxTelemetryRecords caps the telemetry preview before byte trimming.
	MaxTelemetryRecords int
}

func (b PromptBudget) withDefaults() PromptBudget {
	if b.MaxBytes <= 0 {
		b.MaxBytes = 12000
	}
	if b.MaxDocChars <= 0 {
		b.MaxDocChars = 1000
	}
	if b.MaxTelemetryRecords <= 0 {
		b.MaxTelemetryRecords = 20
	}
	return b
}

// BuildPrompt deterministically assembles the generation request from the
// incident, question, telemetry sample and grounding documents. When the
// result exceeds the byte budget, the lowest-relevance documents and the
// oldest telemetry records are dropped first. Pure: no I/O, no clock.
func BuildPrompt(incident models.IncidentContext, question string, sample models.TelemetrySample, docs []models.GroundingDocument, budget PromptBudget) models.Prompt {
	budget = budget.withDefaults()

	records := sample.Records
	if len(records) > budget.MaxTelemetryRecords {
		records = records[len(records)-budget.MaxTelemetryRecords:]
	}
	included := append([]models.GroundingDocument(nil), docs...)

	user := renderUser(incident, question, records, included, budget.MaxDocChars)
	for len(user) > budget.MaxBytes {
		// Docs arrive ordered by descending relevance, records ascending by
		// time, so trim from the tail of docs and the head of records.
		if len(included) > 0 {
			included = included[:len(included)-1]
		} else if len(records) > 0 {
			records = records[1:]
		} else {
			break
		}
		user = renderUser(incident, question, records, included, budget.MaxDocChars)
	}

	return models.Prompt{System: systemInstruction, User: user}
}

func renderUser(incident models.IncidentContext, question string, records []models.TelemetryRecord, docs []models.GroundingDocument, maxDocChars int) string {
	var sb strings.Builder

	sb.WriteString("INCIDENT:\n")
	fmt.Fprintf(&sb, "id: %s\ntitle: %s\nservice: %s\nenvironment: %s\nseverity: %s\nregion: %s\nchange_ref: %s\nstarted: %s\n\n",
		incident.ID, incident.Title, incident.ServiceName, incident.Environment,
		incident.Severity, incident.Region, incident.ChangeRef, incident.StartTime)

	sb.WriteString("QUESTION:\n")
	sb.WriteString(question)
	sb.WriteString("\n\n")

	sb.WriteString("CONTEXT_KB:\n")
	for _, doc := range docs {
		fmt.Fprintf(&sb, "DOC_ID: %s\nTITLE: %s\nCONTENT:\n%s\n\n", doc.ID, doc.Title, truncate(doc.Content, maxDocChars))
	}

	sb.WriteString("CONTEXT_LOGS_SAMPLE:\n")
	sb.WriteString(renderRecords(records))
	sb.WriteString("\n\n")

	sb.WriteString(outputSchema)
	return sb.String()
}

// truncate caps s at max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func renderRecords(records []models.TelemetryRecord) string {
	if len(records) == 0 {
		return "[]"
	}
	rows := make([]map[string]any, 0, len(records))
	for _, record := range records {
		rows = append(rows, record.Fields)
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "[]"
	}
	return string(data)
}
