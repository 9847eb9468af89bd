package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/noah-isme/siports-api/internal/dto"
)

type seedResult struct {
	Status  int
	Created int
	Message string
}

func main() {
	var (
		baseURL     string
		prefix      string
		exhibitorID string
		slotsPath   string
		timeout     time.Duration
	)

	flag.StringVar(&baseURL, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&prefix, "prefix", "/api/v1", "API prefix")
	flag.StringVar(&exhibitorID, "exhibitor", "", "Exhibitor ID owning the slots")
	flag.StringVar(&slotsPath, "slots", filepath.Join("scripts", "seed_slots", "slots.json"), "Path to JSON slots file")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	token := os.Getenv("SIPORTS_TOKEN")
	if exhibitorID == "" || token == "" {
		log.Fatal("both -exhibitor and SIPORTS_TOKEN are required")
	}

	req, err := loadSlots(slotsPath)
	if err != nil {
		log.Fatalf("failed to load slots: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	res, err := seed(client, strings.TrimRight(baseURL, "/")+prefix, exhibitorID, token, req)
	if err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	fmt.Printf("Submitted %d slots for exhibitor %s: status %d, created %d\n", len(req.Slots), exhibitorID, res.Status, res.Created)
	if res.Message != "" {
		fmt.Printf("Server said: %s\n", res.Message)
		os.Exit(1)
	}
}

func loadSlots(path string) (dto.BulkCreateSlotsRequest, error) {
	var req dto.BulkCreateSlotsRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, err
	}
	if len(req.Slots) == 0 {
		return req, fmt.Errorf("no slots defined in %s", path)
	}
	return req, nil
}

func seed(client *http.Client, apiBase, exhibitorID, token string, payload dto.BulkCreateSlotsRequest) (seedResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return seedResult{}, err
	}
	url := fmt.Sprintf("%s/exhibitors/%s/slots/bulk", apiBase, exhibitorID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return seedResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return seedResult{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return seedResult{}, err
	}

	var envelope struct {
		Data  dto.BulkCreateSlotsResponse `json:"data"`
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return seedResult{Status: resp.StatusCode}, errors.New("unexpected response: " + strings.TrimSpace(string(raw)))
	}

	res := seedResult{Status: resp.StatusCode, Created: envelope.Data.Created}
	if envelope.Error != nil {
		res.Message = fmt.Sprintf("%s: %s", envelope.Error.Code, envelope.Error.Message)
	}
	return res, nil
}
