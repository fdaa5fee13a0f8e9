package scrape

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"prospect/internal/config"
)

const knowledgeJSON = `{
  "person": {
    "full_name": "Roberto Garcia",
    "current_role": "Gerente de Mantenimiento",
    "current_company": "Acme",
    "career": "15 anos en mantenimiento minero",
    "education": "Universidad de Chile",
    "location": "Antofagasta",
    "achievements": ["Premio seguridad 2024"]
  },
  "company": {
    "name": "Acme",
    "industry": "Servicios mineros",
    "description": "Mantenimiento industrial para la gran mineria.",
    "products": ["Gestion de activos"],
    "employee_count": "200-500",
    "location": "Antofagasta, Chile",
    "website": "https://acme.cl",
    "competitors": ["Rivales SpA"]
  },
  "findings": ["Acme firmo contrato con Codelco en 2026", "Dato sin cita"],
  "citations": ["https://prensa.cl/negocios/acme-codelco"]
}`

func TestNewKnowledgeRequiresAPIKey(t *testing.T) {
	cfg := config.Defaults()
	assert.Nil(t, NewKnowledge(cfg, zap.NewNop()))

	cfg.PerplexityAPIKey = "pplx-test"
	assert.NotNil(t, NewKnowledge(cfg, zap.NewNop()))
}

func TestParseKnowledgePayloadPlainJSON(t *testing.T) {
	payload, ok := parseKnowledgePayload(knowledgeJSON)
	require.True(t, ok)
	assert.Equal(t, "Roberto Garcia", payload.Person.FullName)
	assert.Equal(t, "Servicios mineros", payload.Company.Industry)
}

func TestParseKnowledgePayloadFenced(t *testing.T) {
	payload, ok := parseKnowledgePayload("Aqui esta el resultado:\n```json\n" + knowledgeJSON + "\n```\nSaludos.")
	require.True(t, ok)
	assert.Equal(t, "Roberto Garcia", payload.Person.FullName)

	payload, ok = parseKnowledgePayload("```\n" + knowledgeJSON + "\n```")
	require.True(t, ok)
	assert.Equal(t, "Acme", payload.Company.Name)
}

func TestParseKnowledgePayloadEmbeddedInProse(t *testing.T) {
	content := `Encontre lo siguiente sobre la persona: {"person":{"full_name":"Roberto Garcia"},"company":{},"findings":[],"citations":[]} espero que sirva.`
	payload, ok := parseKnowledgePayload(content)
	require.True(t, ok)
	assert.Equal(t, "Roberto Garcia", payload.Person.FullName)
}

func TestParseKnowledgePayloadGarbage(t *testing.T) {
	_, ok := parseKnowledgePayload("no hay json aqui")
	assert.False(t, ok)

	_, ok = parseKnowledgePayload("{nunca se cierra")
	assert.False(t, ok)
}

func TestExtractBracedRespectsStrings(t *testing.T) {
	got, ok := extractBraced(`ruido {"a":"valor con } dentro","b":{"c":1}} cola`)
	require.True(t, ok)
	assert.Equal(t, `{"a":"valor con } dentro","b":{"c":1}}`, got)
}

func TestKnowledgeItems(t *testing.T) {
	var payload knowledgePayload
	require.NoError(t, json.Unmarshal([]byte(knowledgeJSON), &payload))

	items := payload.items(Query{Name: "Roberto Garcia", Company: "Acme"})

	require.Len(t, items, 3)

	assert.Equal(t, "Roberto Garcia - Perfil profesional", items[0].Title)
	assert.Empty(t, items[0].URL) // uncited channel text never carries a URL
	assert.Contains(t, items[0].Snippet, "Gerente de Mantenimiento")
	assert.Contains(t, items[0].Snippet, "Universidad de Chile")

	assert.Equal(t, "Acme - Informacion corporativa", items[1].Title)
	assert.Empty(t, items[1].URL)
	assert.Contains(t, items[1].Snippet, "Servicios mineros")

	// One citation: the second finding has nothing to back it and is dropped.
	assert.Equal(t, "https://prensa.cl/negocios/acme-codelco", items[2].URL)
	assert.Contains(t, items[2].Snippet, "Codelco")
}

func TestCitedFindingsFiltersCitations(t *testing.T) {
	payload := knowledgePayload{
		Findings: []string{"uno", "dos", "tres", "cuatro"},
		Citations: []string{
			"https://www.linkedin.com/in/alguien", // profile, distrusted
			"https://diario.cl/",                  // homepage, distrusted
			"no-es-url",
			"https://diario.cl/economia/nota-real",
		},
	}

	items := payload.citedFindings()
	require.Len(t, items, 1)
	assert.Equal(t, "https://diario.cl/economia/nota-real", items[0].URL)
	assert.Equal(t, "uno", items[0].Snippet)
}

func TestCitedFindingsCap(t *testing.T) {
	payload := knowledgePayload{
		Findings: []string{"a1", "a2", "a3", "a4", "a5"},
		Citations: []string{
			"https://x.cl/nota-1", "https://x.cl/nota-2", "https://x.cl/nota-3",
			"https://x.cl/nota-4", "https://x.cl/nota-5",
		},
	}
	assert.Len(t, payload.citedFindings(), maxFindings)
}

func TestEmptyPayloadYieldsNothing(t *testing.T) {
	assert.Empty(t, knowledgePayload{}.items(Query{Name: "X", Company: "Y"}))
}

func TestKnowledgeSearchEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Contains(t, r.Header.Get("Authorization"), "pplx-test")

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sonar-pro", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "Roberto Garcia")

		resp := map[string]any{
			"id":      "resp-1",
			"object":  "chat.completion",
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": "```json\n" + knowledgeJSON + "\n```",
				},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Defaults()
	cfg.PerplexityAPIKey = "pplx-test"
	cfg.PerplexityBaseURL = srv.URL

	k := NewKnowledge(cfg, zap.NewNop())
	require.NotNil(t, k)

	items := k.Search(context.Background(), Query{Name: "Roberto Garcia", Company: "Acme"})
	require.Len(t, items, 3)
	for _, it := range items {
		assert.Equal(t, TagKnowledge, it.Source)
	}
}
