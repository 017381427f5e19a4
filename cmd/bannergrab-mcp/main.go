package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// pollInterval is how often batch status is polled.
var pollInterval = 2 * time.Second

// imageEntry mirrors one image of the bannergrab API response.
type imageEntry struct {
	URL          string   `json:"url"`
	SourceURL    string   `json:"source_url"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	Format       string   `json:"format"`
	MatchedTerms []string `json:"matched_terms"`
}

// bannerResponse mirrors the bannergrab API response model.
type bannerResponse struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message"`
	FolderName string       `json:"folder_name"`
	PageTitle  string       `json:"page_title"`
	Images     []imageEntry `json:"images"`
	Error      *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// batchResponse mirrors the bannergrab batch API response.
type batchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// batchStatusResponse mirrors the bannergrab batch status API response.
type batchStatusResponse struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Results   []*bannerResponse `json:"results"`
}

// apiKey is sent as X-API-Key when the API requires authentication.
var apiKey string

func main() {
	apiURL := os.Getenv("BANNERGRAB_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiURL = strings.TrimRight(apiURL, "/")
	apiKey = os.Getenv("BANNERGRAB_API_KEY")

	s := newServer(apiURL)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(apiURL string) *server.MCPServer {
	s := server.NewMCPServer(
		"bannergrab",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	extractTool := mcp.NewTool("extract_banners",
		append([]mcp.ToolOption{
			mcp.WithDescription("Find the marketing banner images (hero images, slideshows, promotions) on a web page, save them on the bannergrab server and return their URLs, sizes and the terms that matched."),
			mcp.WithString("url",
				mcp.Required(),
				mcp.Description("The URL of the web page to scan"),
			),
			mcp.WithString("folder_name",
				mcp.Description("Output folder name on the server (letters, digits, '.', '_', '-'). Default: a random UUID"),
			),
		}, ruleOptions()...)...,
	)
	s.AddTool(extractTool, handleExtractBanners(apiURL))

	batchTool := mcp.NewTool("batch_extract_banners",
		append([]mcp.ToolOption{
			mcp.WithDescription("Find marketing banner images on several pages in parallel, applying the same rules to every page."),
			mcp.WithArray("urls",
				mcp.Required(),
				mcp.Description("List of page URLs to scan"),
				mcp.WithStringItems(),
			),
		}, ruleOptions()...)...,
	)
	s.AddTool(batchTool, handleBatchExtract(apiURL))

	return s
}

// ruleOptions are the filter arguments shared by both tools.
func ruleOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithArray("include_terms",
			mcp.Description("Class/id words that mark a banner, e.g. [\"hero\", \"slideshow\"]. Falls back to a built-in marketing vocabulary when none match"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("exclude_terms",
			mcp.Description("Class/id words that disqualify an image, e.g. [\"thumbnail\", \"avatar\"]"),
			mcp.WithStringItems(),
		),
		mcp.WithNumber("min_width",
			mcp.Description("Minimum image width in pixels (default: 100 when any rule is set)"),
		),
		mcp.WithNumber("min_height",
			mcp.Description("Minimum image height in pixels (default: 100 when any rule is set)"),
		),
		mcp.WithArray("allowed_formats",
			mcp.Description("Accepted image formats (default: jpg, jpeg, png, gif)"),
			mcp.WithStringItems(),
		),
		mcp.WithString("preset",
			mcp.Description("Named rule preset; 'marketing' is built in"),
		),
	}
}

// rulesPayload copies the rule arguments that were actually given.
func rulesPayload(request mcp.CallToolRequest) map[string]any {
	payload := map[string]any{}
	args := request.GetArguments()
	for _, key := range []string{"include_terms", "exclude_terms", "allowed_formats"} {
		if v := request.GetStringSlice(key, nil); len(v) > 0 {
			payload[key] = v
		}
	}
	for _, key := range []string{"min_width", "min_height"} {
		if v, ok := args[key]; ok {
			payload[key] = v
		}
	}
	if preset := request.GetString("preset", ""); preset != "" {
		payload["preset"] = preset
	}
	return payload
}

// apiPost sends a POST request to the bannergrab API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	setKey(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func setKey(req *http.Request) {
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
}

// pollJobCompletion polls a job endpoint until status is no longer "processing" or context is cancelled.
func pollJobCompletion(ctx context.Context, client *http.Client, apiURL, endpoint string, every time.Duration) ([]byte, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+endpoint, nil)
			if err != nil {
				return nil, fmt.Errorf("create poll request: %w", err)
			}
			setKey(req)

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}

			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read poll response: %w", err)
			}

			var status struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}

			if status.Status != "processing" {
				return body, nil
			}
		}
	}
}

func handleExtractBanners(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := rulesPayload(request)
		payload["url"] = url
		if folder := request.GetString("folder_name", ""); folder != "" {
			payload["folder_name"] = folder
		}

		respBody, err := apiPost(ctx, client, apiURL, "/api/v1/banners", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("extract request failed: %v", err)), nil
		}

		var br bannerResponse
		if err := json.Unmarshal(respBody, &br); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !br.Success {
			return mcp.NewToolResultError(failureText(&br)), nil
		}

		var sb strings.Builder
		writeBanners(&sb, apiURL, &br)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleBatchExtract(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		payload := map[string]any{
			"urls":  urls,
			"rules": rulesPayload(request),
		}

		respBody, err := apiPost(ctx, client, apiURL, "/api/v1/banners/batch", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch request failed: %v", err)), nil
		}

		var created batchResponse
		if err := json.Unmarshal(respBody, &created); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch response: %v", err)), nil
		}
		if created.ID == "" {
			return mcp.NewToolResultError("batch job creation failed"), nil
		}

		resultBody, err := pollJobCompletion(ctx, client, apiURL, "/api/v1/banners/batch/"+created.ID, pollInterval)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling batch job failed: %v", err)), nil
		}

		var status batchStatusResponse
		if err := json.Unmarshal(resultBody, &status); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch status: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Batch %s: %s (%d/%d completed)\n\n", status.ID, status.Status, status.Completed, status.Total)
		for i, br := range status.Results {
			target := ""
			if i < len(urls) {
				target = urls[i]
			}
			if br == nil || !br.Success {
				msg := "unknown error"
				if br != nil {
					msg = failureText(br)
				}
				fmt.Fprintf(&sb, "--- [%d] %s FAILED: %s ---\n\n", i+1, target, msg)
				continue
			}
			fmt.Fprintf(&sb, "--- [%d] %s ---\n", i+1, target)
			writeBanners(&sb, apiURL, br)
			sb.WriteString("\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func failureText(br *bannerResponse) string {
	if br.Error != nil {
		return fmt.Sprintf("[%s] %s", br.Error.Code, br.Error.Message)
	}
	return "extraction failed"
}

func writeBanners(sb *strings.Builder, apiURL string, br *bannerResponse) {
	if br.PageTitle != "" {
		fmt.Fprintf(sb, "Title: %s\n", br.PageTitle)
	}
	fmt.Fprintf(sb, "Folder: %s (zip: %s/api/v1/download/%s)\n", br.FolderName, apiURL, br.FolderName)
	fmt.Fprintf(sb, "Found %d banner images:\n", len(br.Images))
	for _, img := range br.Images {
		fmt.Fprintf(sb, "- %s%s %dx%d %s from %s (matched: %s)\n",
			apiURL, img.URL, img.Width, img.Height, img.Format, img.SourceURL, strings.Join(img.MatchedTerms, ", "))
	}
}
