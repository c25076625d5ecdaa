package main

import (
	"fmt"
	"os"

	"github.com/debemdeboas/the-kennel/internal/config"
	"gopkg.in/yaml.v3"
)

const header = `# The Kennel Configuration Example
# Copy this file to config.yaml and customize as needed.
#
# Owner keys map a site owner id to the PEM-encoded Ed25519 public key that signs its
# challenges, for example:
#
# auth:
#   owner_keys:
#     sunny-paws: |
#       -----BEGIN PUBLIC KEY-----
#       ...
#       -----END PUBLIC KEY-----
#
# S3 credentials are read from S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY.

`

func main() {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating YAML: %v\n", err)
		os.Exit(1)
	}

	output := header + string(yamlData)

	outputFile := "config.example.yaml"
	if len(os.Args) > 1 {
		outputFile = os.Args[1]
	}

	if outputFile == "-" {
		fmt.Print(output)
		return
	}

	if err := os.WriteFile(outputFile, []byte(output), 0644); err != nil {
		fmt.Fprintf(os.Stderr, config.ErrWriteConfigContentFmt+"\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated example config: %s\n", outputFile)
}
