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

// extractRequest mirrors the super-dl API request model.
type extractRequest struct {
	URL      string `json:"url"`
	Site     string `json:"site,omitempty"`
	Render   bool   `json:"render,omitempty"`
	Selector string `json:"selector,omitempty"`
}

// downloadRequest mirrors the super-dl download API request model.
type downloadRequest struct {
	URL        string `json:"url"`
	Site       string `json:"site,omitempty"`
	OutputPath string `json:"output_path,omitempty"`
	Render     bool   `json:"render,omitempty"`
	Selector   string `json:"selector,omitempty"`
}

// mediaReference mirrors the resolved media portion of the API response.
type mediaReference struct {
	URL       string `json:"url"`
	Kind      string `json:"kind"`
	Referer   string `json:"referer"`
	Title     string `json:"title"`
	Extractor string `json:"extractor"`
}

// extractResponse mirrors the super-dl extract API response model.
type extractResponse struct {
	Success bool            `json:"success"`
	Media   *mediaReference `json:"media"`
	Page    *struct {
		URL    string `json:"url"`
		Title  string `json:"title"`
		Engine string `json:"engine"`
	} `json:"page"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// downloadResponse mirrors the super-dl download API response model.
type downloadResponse struct {
	Success bool `json:"success"`
	Outcome *struct {
		BytesWritten int64  `json:"bytes_written"`
		OutputPath   string `json:"output_path"`
		MediaURL     string `json:"media_url"`
		DurationMs   int64  `json:"duration_ms"`
	} `json:"outcome"`
	Media *mediaReference `json:"media"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("SUPERDL_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("SUPERDL_API_KEY")

	s := server.NewMCPServer(
		"super-dl",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	extractMediaTool := mcp.NewTool("extract_media",
		mcp.WithDescription("Find the video file embedded in a web page and return its direct URL without downloading it."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page containing the video"),
		),
		mcp.WithString("site",
			mcp.Description("Extractor to use; omit to infer from the URL hostname"),
		),
		mcp.WithBoolean("render",
			mcp.Description("Render the page with a headless browser before extracting"),
		),
		mcp.WithString("selector",
			mcp.Description("CSS selector restricting where media is looked for"),
		),
	)
	s.AddTool(extractMediaTool, handleExtractMedia(apiURL, apiKey))

	downloadMediaTool := mcp.NewTool("download_media",
		mcp.WithDescription("Download the video embedded in a web page to a file on the server and return the saved path."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page containing the video"),
		),
		mcp.WithString("site",
			mcp.Description("Extractor to use; omit to infer from the URL hostname"),
		),
		mcp.WithString("output_path",
			mcp.Description("Destination file path; omit to derive a name from the media URL"),
		),
		mcp.WithBoolean("render",
			mcp.Description("Render the page with a headless browser before extracting"),
		),
	)
	s.AddTool(downloadMediaTool, handleDownloadMedia(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the super-dl API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleExtractMedia(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := extractRequest{
			URL:      url,
			Site:     request.GetString("site", ""),
			Render:   request.GetBool("render", false),
			Selector: request.GetString("selector", ""),
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/extract", reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("extract request failed: %v", err)), nil
		}

		var extResp extractResponse
		if err := json.Unmarshal(respBody, &extResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !extResp.Success || extResp.Media == nil {
			errMsg := "extraction failed"
			if extResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", extResp.Error.Code, extResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var sb strings.Builder
		m := extResp.Media
		sb.WriteString(fmt.Sprintf("Media URL: %s\nKind: %s\nExtractor: %s\n", m.URL, m.Kind, m.Extractor))
		if m.Referer != "" {
			sb.WriteString(fmt.Sprintf("Referer: %s\n", m.Referer))
		}
		if extResp.Page != nil && extResp.Page.Title != "" {
			sb.WriteString(fmt.Sprintf("Page title: %s\n", extResp.Page.Title))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleDownloadMedia(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := downloadRequest{
			URL:        url,
			Site:       request.GetString("site", ""),
			OutputPath: request.GetString("output_path", ""),
			Render:     request.GetBool("render", false),
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/download", reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("download request failed: %v", err)), nil
		}

		var dlResp downloadResponse
		if err := json.Unmarshal(respBody, &dlResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !dlResp.Success || dlResp.Outcome == nil {
			errMsg := "download failed"
			if dlResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", dlResp.Error.Code, dlResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		o := dlResp.Outcome
		result := fmt.Sprintf("Saved: %s\nBytes: %d\nSource: %s\nDuration: %dms",
			o.OutputPath, o.BytesWritten, o.MediaURL, o.DurationMs)
		return mcp.NewToolResultText(result), nil
	}
}
