package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"mesgbairai/internal/models"
	"mesgbairai/pkg/config"

	"go.uber.org/zap"
)

// User-facing degraded answers for each generation failure kind. They are
// delivered verbatim in the response body instead of an HTTP error.
const (
	MsgGenerationTimeout  = "Le serveur Hugging Face met trop de temps à répondre."
	MsgGenerationNetwork  = "Erreur de connexion à Hugging Face."
	MsgGenerationAPIError = "Erreur lors de la génération de texte."
	MsgGenerationFallback = "Désolé, je n'ai pas pu générer de réponse."
)

// LLMService posts prompts to the hosted text-generation endpoint. The wire
// format is the HF inference shape: {"inputs": ..., "parameters": {...}} in,
// "generated_text" out (either a bare object or a one-element array).
type LLMService struct {
	config           *config.HuggingFaceConfig
	httpClient       *http.Client // primary generation
	completionClient *http.Client // targeted last-word completion, shorter timeout
	logger           *zap.Logger
}

func NewLLMService(cfg *config.HuggingFaceConfig, logger *zap.Logger) *LLMService {
	return &LLMService{
		config:           cfg,
		httpClient:       &http.Client{Timeout: cfg.Timeout},
		completionClient: &http.Client{Timeout: cfg.CompletionTimeout},
		logger:           logger,
	}
}

type generationRequest struct {
	Inputs     string                  `json:"inputs"`
	Parameters models.GenerationParams `json:"parameters"`
}

// generationChunk covers both response shapes plus the in-band error object the
// API returns while a model is loading or misconfigured.
type generationChunk struct {
	GeneratedText *string `json:"generated_text"`
	Error         string  `json:"error"`
}

// Generate runs a full sampled generation with the configured budget.
func (s *LLMService) Generate(ctx context.Context, prompt string) (string, error) {
	return s.post(ctx, s.httpClient, prompt, models.GenerationParams{
		MaxNewTokens: s.config.MaxNewTokens,
		Temperature:  s.config.Temperature,
		TopP:         s.config.TopP,
		DoSample:     true,
	})
}

// CompleteLastWord asks the model for only the missing remainder of the last
// word of partialText, with deterministic decoding and a small budget. It
// returns false when no usable completion was produced; failures are logged,
// never surfaced.
func (s *LLMService) CompleteLastWord(ctx context.Context, originalPrompt, partialText string) (string, bool) {
	completionPrompt := fmt.Sprintf(
		"%s\n\n"+
			"Le texte suivant s'est arrêté en plein mot. Complète uniquement le dernier mot pour que la phrase soit lisible.\n\n"+
			"Texte : \"%s\"\n\n"+
			"Réponds uniquement par la suite nécessaire pour compléter le dernier mot (ne répète pas tout le texte).",
		originalPrompt, partialText)

	cont, err := s.post(ctx, s.completionClient, completionPrompt, models.GenerationParams{
		MaxNewTokens: s.config.CompletionMaxNewTokens,
		Temperature:  s.config.CompletionTemperature,
		TopP:         s.config.TopP,
		DoSample:     false,
	})
	if err != nil {
		s.logger.Warn("Last-word completion failed", zap.Error(err))
		return "", false
	}

	cont = strings.TrimSpace(cont)

	// If the model echoed the whole text back, keep only the portion beyond it.
	if strings.HasPrefix(cont, partialText) {
		extra := strings.TrimLeft(cont[len(partialText):], " \t\r\n")
		if extra == "" {
			return "", false
		}
		return extra, true
	}
	if cont == "" {
		return "", false
	}
	return cont, true
}

func (s *LLMService) post(ctx context.Context, client *http.Client, prompt string, params models.GenerationParams) (string, error) {
	payload, err := json.Marshal(generationRequest{Inputs: prompt, Parameters: params})
	if err != nil {
		return "", &GenerateError{Kind: FailureBadShape, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.ModelURL, bytes.NewReader(payload))
	if err != nil {
		return "", &GenerateError{Kind: FailureNetwork, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err) {
			s.logger.Error("Generation API timeout")
			return "", &GenerateError{Kind: FailureTimeout, Err: err}
		}
		s.logger.Error("Generation API network error", zap.Error(err))
		return "", &GenerateError{Kind: FailureNetwork, Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &GenerateError{Kind: FailureNetwork, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("Generation API bad status",
			zap.Int("status", resp.StatusCode), zap.ByteString("body", bodyBytes))
		return "", &GenerateError{
			Kind: FailureNetwork,
			Err:  fmt.Errorf("status %d: %s", resp.StatusCode, string(bodyBytes)),
		}
	}

	return decodeGenerated(bodyBytes, s.logger)
}

// decodeGenerated normalizes the two accepted response shapes and rejects
// everything else as a distinct failure kind.
func decodeGenerated(body []byte, logger *zap.Logger) (string, error) {
	trimmed := bytes.TrimSpace(body)

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var chunks []generationChunk
		if err := json.Unmarshal(trimmed, &chunks); err == nil && len(chunks) > 0 && chunks[0].GeneratedText != nil {
			return *chunks[0].GeneratedText, nil
		}
	} else {
		var chunk generationChunk
		if err := json.Unmarshal(trimmed, &chunk); err == nil {
			if chunk.GeneratedText != nil {
				return *chunk.GeneratedText, nil
			}
			if chunk.Error != "" {
				logger.Error("Generation API reported error", zap.String("api_error", chunk.Error))
				return "", &GenerateError{Kind: FailureAPIError, Err: errors.New(chunk.Error)}
			}
		}
	}

	logger.Warn("Unexpected generation response shape", zap.ByteString("body", trimmed))
	return "", &GenerateError{
		Kind: FailureBadShape,
		Err:  fmt.Errorf("no generated_text in response: %s", string(trimmed)),
	}
}

// FailureMessage maps a generation error to the degraded answer the user sees.
func FailureMessage(err error) string {
	var genErr *GenerateError
	if errors.As(err, &genErr) {
		switch genErr.Kind {
		case FailureTimeout:
			return MsgGenerationTimeout
		case FailureNetwork:
			return MsgGenerationNetwork
		case FailureAPIError:
			return MsgGenerationAPIError
		}
	}
	return MsgGenerationFallback
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
