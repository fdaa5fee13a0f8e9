package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"prospect/internal/config"
)

const (
	maxFindings       = 3
	knowledgeTemp     = 0.1
	knowledgeMaxToken = 4096
)

var _ Source = (*Knowledge)(nil)

// Knowledge is the answer-generation API channel. It is the one source
// explicitly distrusted for free text: the API hallucinates news, URLs and
// homonym companies for little-known people. Only the structured person and
// company fields are turned into items; findings survive only when the
// response grounds them in citations.
type Knowledge struct {
	client *openai.Client
	model  string
	log    *zap.SugaredLogger
}

// NewKnowledge returns nil when no API key is configured; the orchestrator
// simply runs without this channel.
func NewKnowledge(cfg config.Settings, log *zap.Logger) *Knowledge {
	if cfg.PerplexityAPIKey == "" {
		return nil
	}
	cc := openai.DefaultConfig(cfg.PerplexityAPIKey)
	cc.BaseURL = cfg.PerplexityBaseURL
	return &Knowledge{
		client: openai.NewClientWithConfig(cc),
		model:  cfg.PerplexityModel,
		log:    log.Sugar().Named("knowledge"),
	}
}

func (k *Knowledge) Tag() Tag { return TagKnowledge }

func (k *Knowledge) Search(ctx context.Context, q Query) []Item {
	resp, err := k.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: k.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: knowledgeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildKnowledgePrompt(q)},
		},
		Temperature: knowledgeTemp,
		MaxTokens:   knowledgeMaxToken,
	})
	if err != nil {
		k.log.Debugw("api call failed", "err", err)
		return nil
	}
	if len(resp.Choices) == 0 {
		return nil
	}

	payload, ok := parseKnowledgePayload(resp.Choices[0].Message.Content)
	if !ok {
		k.log.Debug("unparseable api payload")
		return nil
	}
	return payload.items(q)
}

const knowledgeSystemPrompt = `Eres un investigador B2B. Tu tarea es buscar informacion REAL y VERIFICABLE.

REGLAS ANTI-ALUCINACION:
1. NUNCA inventes informacion. Si no encuentras datos reales, deja el campo vacio "".
2. NUNCA fabriques URLs. El campo "citations" solo puede contener URLs que realmente hayas consultado.
3. NUNCA inventes noticias, eventos ni montos de inversion.
4. CUIDADO con empresas homonimas: verifica pais, industria y contexto.
5. "findings" SOLO puede contener hechos con respaldo real; si no hay, devuelve [].
6. Es MIL VECES mejor devolver campos vacios que inventar datos falsos.

Responde en JSON con esta estructura:
{
  "person": {
    "full_name": "", "current_role": "", "current_company": "",
    "career": "", "education": "", "location": "", "achievements": []
  },
  "company": {
    "name": "", "industry": "", "description": "", "products": [],
    "employee_count": "", "location": "", "website": "", "competitors": []
  },
  "findings": [],
  "citations": []
}`

func buildKnowledgePrompt(q Query) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Investiga a %s", q.Name)
	if q.Role != "" {
		fmt.Fprintf(&b, " (%s)", q.Role)
	}
	fmt.Fprintf(&b, " de la empresa %s", q.Company)
	if q.Location != "" {
		fmt.Fprintf(&b, " en %s", q.Location)
	}
	b.WriteString(".\n\nBusca su perfil profesional (cargo, trayectoria, educacion, ubicacion) ")
	b.WriteString("e informacion de la empresa (industria, productos, tamano, sitio web, competidores).\n")
	fmt.Fprintf(&b, "IMPORTANTE: %s puede tener homonimos en otros paises; verifica que sea la empresa correcta.\n", q.Company)
	b.WriteString("Si no encuentras informacion verificable, devuelve campos vacios. NO inventes datos ni URLs.")
	return b.String()
}

type knowledgePerson struct {
	FullName       string   `json:"full_name"`
	CurrentRole    string   `json:"current_role"`
	CurrentCompany string   `json:"current_company"`
	Career         string   `json:"career"`
	Education      string   `json:"education"`
	Location       string   `json:"location"`
	Achievements   []string `json:"achievements"`
}

type knowledgeCompany struct {
	Name          string   `json:"name"`
	Industry      string   `json:"industry"`
	Description   string   `json:"description"`
	Products      []string `json:"products"`
	EmployeeCount string   `json:"employee_count"`
	Location      string   `json:"location"`
	Website       string   `json:"website"`
	Competitors   []string `json:"competitors"`
}

type knowledgePayload struct {
	Person    knowledgePerson  `json:"person"`
	Company   knowledgeCompany `json:"company"`
	Findings  []string         `json:"findings"`
	Citations []string         `json:"citations"`
}

// parseKnowledgePayload handles content that arrives fenced in markdown,
// and falls back to brace matching when the model wraps the JSON in prose.
func parseKnowledgePayload(content string) (knowledgePayload, bool) {
	var payload knowledgePayload

	clean := content
	if i := strings.Index(clean, "```json"); i >= 0 {
		clean = clean[i+len("```json"):]
		if j := strings.Index(clean, "```"); j >= 0 {
			clean = clean[:j]
		}
	} else if i := strings.Index(clean, "```"); i >= 0 {
		clean = clean[i+3:]
		if j := strings.Index(clean, "```"); j >= 0 {
			clean = clean[:j]
		}
	}

	if err := json.Unmarshal([]byte(strings.TrimSpace(clean)), &payload); err == nil {
		return payload, true
	}

	extracted, ok := extractBraced(content)
	if !ok {
		return payload, false
	}
	if err := json.Unmarshal([]byte(extracted), &payload); err != nil {
		return payload, false
	}
	return payload, true
}

// extractBraced returns the first balanced {...} block, respecting strings.
func extractBraced(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// items builds at most one person item, one company item, and citation-
// grounded findings. Person/company items carry no URL on purpose: URLs
// from this channel are only trusted when attributed to a citation.
func (p knowledgePayload) items(q Query) []Item {
	var items []Item

	if text := p.personText(); text != "" {
		name := p.Person.FullName
		if name == "" {
			name = q.Name
		}
		items = append(items, Item{
			Title:   name + " - Perfil profesional",
			Snippet: text,
			Source:  TagKnowledge,
		})
	}

	if text := p.companyText(); text != "" {
		name := p.Company.Name
		if name == "" {
			name = q.Company
		}
		items = append(items, Item{
			Title:   name + " - Informacion corporativa",
			Snippet: text,
			Source:  TagKnowledge,
		})
	}

	items = append(items, p.citedFindings()...)
	return items
}

func (p knowledgePayload) personText() string {
	var parts []string
	add := func(label, v string) {
		if v != "" {
			parts = append(parts, label+": "+v)
		}
	}
	add("Cargo", p.Person.CurrentRole)
	add("Empresa", p.Person.CurrentCompany)
	add("Trayectoria", p.Person.Career)
	add("Educacion", p.Person.Education)
	add("Ubicacion", p.Person.Location)
	if n := len(p.Person.Achievements); n > 0 {
		if n > 3 {
			p.Person.Achievements = p.Person.Achievements[:3]
		}
		parts = append(parts, "Logros: "+strings.Join(p.Person.Achievements, "; "))
	}
	return strings.Join(parts, ". ")
}

func (p knowledgePayload) companyText() string {
	var parts []string
	add := func(label, v string) {
		if v != "" {
			parts = append(parts, label+": "+v)
		}
	}
	add("Industria", p.Company.Industry)
	if p.Company.Description != "" {
		parts = append(parts, p.Company.Description)
	}
	if len(p.Company.Products) > 0 {
		parts = append(parts, "Productos: "+strings.Join(capList(p.Company.Products, 5), ", "))
	}
	add("Tamano", p.Company.EmployeeCount)
	add("Ubicacion", p.Company.Location)
	if len(p.Company.Competitors) > 0 {
		parts = append(parts, "Competidores: "+strings.Join(capList(p.Company.Competitors, 5), ", "))
	}
	return strings.Join(parts, ". ")
}

// citedFindings pairs findings with citation URLs positionally. A finding
// without a usable citation is dropped: uncited claims from this channel
// are exactly the hallucination surface being defended against.
func (p knowledgePayload) citedFindings() []Item {
	if len(p.Findings) == 0 || len(p.Citations) == 0 {
		return nil
	}

	usable := make([]string, 0, len(p.Citations))
	for _, c := range p.Citations {
		if strings.HasPrefix(c, "http") && !hostContains(c, profileDomain) && notHomepage(c) {
			usable = append(usable, c)
		}
	}

	var items []Item
	for i, finding := range p.Findings {
		if i >= len(usable) || len(items) >= maxFindings {
			break
		}
		finding = strings.TrimSpace(finding)
		if finding == "" {
			continue
		}
		items = append(items, Item{
			URL:     usable[i],
			Title:   "Hallazgo citado",
			Snippet: finding,
			Source:  TagKnowledge,
		})
	}
	return items
}

func capList(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}
