// Package advice is a stateless pass-through to the Gemini API: it turns a
// report's fields into constructive guidance for readers, and extracts tags
// plus a summary from report descriptions. Upstream failures degrade to
// static fallback messages; they are never surfaced as hard errors.
package advice

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// FallbackAdvice is returned when the upstream call fails.
const FallbackAdvice = "Non è stato possibile generare suggerimenti in questo momento. Riprova più tardi."

// Input carries the report fields the prompt is built from.
type Input struct {
	CompanyName string
	Sector      string
	Title       string
	Description string
}

// Analysis is the structured result of analyzing a report description.
type Analysis struct {
	Tags    []string `json:"tags"`
	Summary string   `json:"summary"`
}

func fallbackAnalysis() Analysis {
	return Analysis{
		Tags:    []string{"Analisi Fallita"},
		Summary: "Non è stato possibile analizzare il contenuto. Il servizio AI potrebbe essere non disponibile.",
	}
}

func incompleteAnalysis(summary string) Analysis {
	if summary == "" {
		summary = "L'analisi ha prodotto un risultato in formato inatteso."
	}
	return Analysis{Tags: []string{"Analisi Incompleta"}, Summary: summary}
}

// Generator wraps a Gemini client. Safe for concurrent use.
type Generator struct {
	client *genai.Client
	model  string
}

// New creates a generator. The API key is required; its absence is a
// configuration error the caller maps to a 500.
func New(ctx context.Context, apiKey, model string) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Generator{client: client, model: model}, nil
}

// Advice produces reader guidance for a report. No retries; on failure it
// logs and returns FallbackAdvice.
func (g *Generator) Advice(ctx context.Context, in Input) string {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(advicePrompt(in)), nil)
	if err != nil {
		log.Printf("advice: generate failed for company %q: %v", in.CompanyName, err)
		return FallbackAdvice
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return FallbackAdvice
	}
	return text
}

// Analyze extracts tags and a short summary from a report description.
// Degrades to a fallback analysis on upstream failure and to an
// "incomplete" analysis when the model response is not the expected JSON.
func (g *Generator) Analyze(ctx context.Context, description string) Analysis {
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(analyzePrompt(description)), cfg)
	if err != nil {
		log.Printf("advice: analyze failed: %v", err)
		return fallbackAnalysis()
	}
	return parseAnalysis(resp.Text())
}

func advicePrompt(in Input) string {
	return fmt.Sprintf(`Un utente ha segnalato l'azienda %q nel settore %q per le seguenti ragioni: %s. La sua descrizione del problema è: %q.
Basandoti su questo, fornisci suggerimenti costruttivi e pratici su come i consumatori, altri lavoratori e la community possono agire.
Struttura la risposta in Markdown. Includi:
- Un paragrafo su come diffondere consapevolezza in modo efficace.
- Suggerimenti per trovare alternative etiche all'azienda (se applicabile).
- Modi concreti per sostenere i lavoratori attuali o passati.
Evita un linguaggio aggressivo. Sii propositivo e focalizzati su azioni realizzabili.`,
		in.CompanyName, in.Sector, in.Title, in.Description)
}

func analyzePrompt(description string) string {
	return fmt.Sprintf(`Analizza la seguente segnalazione di un'esperienza lavorativa e rispondi SOLO con un oggetto JSON con due campi: "tags" (da 2 a 4 etichette brevi in italiano che riassumono i problemi segnalati) e "summary" (una sintesi neutrale di una frase).
Segnalazione: %q`, description)
}

func parseAnalysis(text string) Analysis {
	var parsed Analysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &parsed); err != nil {
		return incompleteAnalysis("")
	}
	if len(parsed.Tags) == 0 {
		return incompleteAnalysis(parsed.Summary)
	}
	return parsed
}
