// Package script turns a content type and topic into slide-ready text via
// the Gemini generateContent API.
package script

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Content is one video's worth of text: an intro title, the content slides
// and a closing line. Field names mirror the JSON the model is asked for.
type Content struct {
	IntroTitle string      `json:"intro_title"`
	Slides     []SlideText `json:"slides"`
	OutroText  string      `json:"outro_text"`
}

type SlideText struct {
	Main string `json:"main_text"`
	Sub  string `json:"sub_text"`
}

// SlideCount is the total number of rendered slides: intro + content + outro.
func (c Content) SlideCount() int {
	return len(c.Slides) + 2
}

const defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

type Generator struct {
	APIKey   string
	Model    string
	Endpoint string // overridden in tests
	Client   *http.Client
}

func NewGenerator(apiKey, model string) *Generator {
	return &Generator{
		APIKey: apiKey,
		Model:  model,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Request/response shapes for the generateContent REST call.
// Docs: https://ai.google.dev/api/generate-content
type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig geminiGeneration `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGeneration struct {
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate asks the model for slideCount content slides of the given type.
// The topic is required for "custom" and ignored otherwise.
func (g *Generator) Generate(ctx context.Context, contentType, topic string, slideCount int) (Content, error) {
	if g.APIKey == "" {
		return Content{}, fmt.Errorf("gemini api key is not set")
	}
	if contentType == "custom" && strings.TrimSpace(topic) == "" {
		return Content{}, fmt.Errorf("content type custom needs a topic")
	}
	if slideCount < 1 {
		slideCount = 1
	}

	prompt, err := buildPrompt(contentType, topic, slideCount)
	if err != nil {
		return Content{}, err
	}

	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGeneration{
			ResponseMIMEType: "application/json",
			Temperature:      0.9,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Content{}, err
	}

	endpoint := g.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", endpoint, g.Model, g.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Content{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Content{}, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return Content{}, fmt.Errorf("gemini: status %d: %v", resp.StatusCode, apiErr)
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Content{}, fmt.Errorf("gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return Content{}, fmt.Errorf("gemini returned no candidates")
	}

	text := stripFences(parsed.Candidates[0].Content.Parts[0].Text)
	var content Content
	if err := json.Unmarshal([]byte(text), &content); err != nil {
		return Content{}, fmt.Errorf("parse generated content: %w", err)
	}
	if len(content.Slides) == 0 {
		return Content{}, fmt.Errorf("generated content has no slides")
	}
	return content, nil
}

// stripFences removes a markdown code fence around the JSON. Models emit one
// now and then even with responseMimeType set.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var topics = map[string]string{
	"quote":      "오늘의 명언: 널리 알려진 명언 하나를 골라 그 의미와 배경을 풀어주세요. 첫 슬라이드는 명언 자체, 나머지는 해석과 오늘에 적용하는 법.",
	"english":    "영어 공부: 오늘 바로 쓸 수 있는 실용 영어 표현들을 소개하세요. main_text는 영어 표현, sub_text는 한국어 뜻과 짧은 사용 맥락.",
	"knowledge":  "오늘의 상식: 듣고 나면 누군가에게 말하고 싶어지는 흥미로운 상식 하나를 단계적으로 설명하세요.",
	"motivation": "동기부여: 하루를 시작하는 사람에게 힘이 되는 구체적이고 현실적인 메시지를 전하세요. 뻔한 표현은 피하세요.",
}

func buildPrompt(contentType, topic string, slideCount int) (string, error) {
	subject, ok := topics[contentType]
	if contentType == "custom" {
		subject = fmt.Sprintf("주제: %s. 이 주제로 시청자가 끝까지 보게 되는 짧은 정보성 콘텐츠를 만드세요.", topic)
		ok = true
	}
	if !ok {
		return "", fmt.Errorf("unknown content type %q", contentType)
	}

	return fmt.Sprintf(`당신은 유튜브 숏츠 대본 작가입니다. %s

반드시 아래 JSON 형식으로만 응답하세요. 다른 텍스트를 붙이지 마세요:
{
  "intro_title": "영상 도입부 제목 (15자 이내)",
  "slides": [
    {"main_text": "핵심 내용 (40자 이내)", "sub_text": "부가 설명 (30자 이내, 없으면 빈 문자열)"}
  ],
  "outro_text": "마무리 한마디 (20자 이내)"
}

규칙:
- slides 배열은 정확히 %d개
- 이모지를 사용하지 마세요
- 각 슬라이드는 소리 내어 읽기 자연스러워야 합니다
- 모든 텍스트는 한국어 (영어 공부 유형의 영어 표현 제외)`, subject, slideCount), nil
}
