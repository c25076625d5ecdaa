// Command sign-challenge signs auth challenges with a site owner's Ed25519 private key.
//
// With -server it fetches the current challenge once and prints the signature. Without it,
// challenges are read from stdin one per line until EOF or "quit".
package main

import (
	"bufio"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/debemdeboas/the-kennel/internal/auth"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	outputStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func loadPrivateKey(filename string) (ed25519.PrivateKey, error) {
	privKeyBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(privKeyBytes)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}
	privKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	edPriv, ok := privKey.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an Ed25519 private key")
	}
	return edPriv, nil
}

func sign(key ed25519.PrivateKey, challengeB64 string) (string, error) {
	challenge, err := base64.StdEncoding.DecodeString(challengeB64)
	if err != nil {
		return "", fmt.Errorf("invalid base64: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(key, challenge)), nil
}

func fetchChallenge(server string) (string, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(strings.TrimSuffix(server, "/") + auth.ChallengePath)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("challenge request: http %d", resp.StatusCode)
	}

	var body struct {
		Challenge string `json:"challenge"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode challenge: %w", err)
	}
	return body.Challenge, nil
}

func main() {
	keyPath := flag.String("key", "privkey.pem", "PEM-encoded PKCS#8 Ed25519 private key")
	server := flag.String("server", "", "Base URL of the site; fetch and sign its current challenge")
	flag.Parse()

	privKey, err := loadPrivateKey(*keyPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("Error loading private key: "+err.Error()))
		os.Exit(1)
	}

	if *server != "" {
		challenge, err := fetchChallenge(*server)
		if err != nil {
			fmt.Fprintln(os.Stderr, errStyle.Render("Error fetching challenge: "+err.Error()))
			os.Exit(1)
		}
		sig, err := sign(privKey, challenge)
		if err != nil {
			fmt.Fprintln(os.Stderr, errStyle.Render("Error: "+err.Error()))
			os.Exit(1)
		}
		fmt.Println(sig)
		return
	}

	fmt.Println("Enter challenges one by one. Type 'quit' to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("Enter challenge (base64): "))

		if !scanner.Scan() {
			break
		}

		challengeB64 := strings.TrimSpace(scanner.Text())
		if challengeB64 == "" {
			continue
		}
		if challengeB64 == "quit" {
			break
		}

		sig, err := sign(privKey, challengeB64)
		if err != nil {
			fmt.Println(errStyle.Render("Error: " + err.Error()))
			continue
		}
		fmt.Println(outputStyle.Render("Signature: " + sig))
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "Error reading input:", err)
	}
}
