package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

const sampleDocument = `Photosynthesis is the process by which green plants use sunlight,
water and carbon dioxide to produce glucose and oxygen. It takes place mainly in
the chloroplasts of leaf cells.`

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

type client struct {
	baseURL string
	http    *http.Client
}

func (c *client) send(method, path string, body interface{}) (*http.Response, map[string]interface{}, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && err != io.EOF {
		return resp, nil, err
	}
	return resp, decoded, nil
}

func must(resp *http.Response, body map[string]interface{}, err error) map[string]interface{} {
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)
	return body
}

// Runs a document -> question round trip against a live server.
func main() {
	baseURL := flag.String("url", "http://localhost:3000/api/assistant/v1", "assistant API base URL")
	question := flag.String("q", "Where does photosynthesis take place?", "question to ask")
	flag.Parse()

	c := &client{baseURL: *baseURL, http: &http.Client{Timeout: 2 * time.Minute}}

	color.Cyan("Starting assistant API smoke test against %s\n", *baseURL)

	color.Yellow("\n1. Health")
	must(c.send("GET", "/health", nil))

	color.Yellow("\n2. Create Session")
	created := must(c.send("POST", "/sessions", nil))
	var sessionID string
	if data, ok := created["data"].(map[string]interface{}); ok {
		sessionID, _ = data["id"].(string)
	}
	if sessionID == "" {
		color.Red("No session id in response")
		os.Exit(1)
	}

	color.Yellow("\n3. Ask Before Document (expect 400)")
	must(c.send("POST", "/sessions/"+sessionID+"/ask", map[string]string{"question": *question}))

	color.Yellow("\n4. Submit Document")
	must(c.send("POST", "/sessions/"+sessionID+"/document", map[string]string{"text": sampleDocument}))

	color.Yellow("\n5. Ask")
	must(c.send("POST", "/sessions/"+sessionID+"/ask", map[string]string{"question": *question}))

	color.Yellow("\n6. Show Session")
	must(c.send("GET", "/sessions/"+sessionID, nil))

	color.Yellow("\n7. Delete Session")
	must(c.send("DELETE", "/sessions/"+sessionID, nil))

	color.Cyan("\nDone")
}
