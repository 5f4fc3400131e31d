package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// receiptAlphabet drops look-alike characters so codes survive being read aloud.
const receiptAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const receiptLength = 10

// Generate creates a prefixed unique ID using NanoID, e.g. "sess-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// Receipt creates a human readable receipt code such as "VTA-7KQ2M9XH4P".
func Receipt(prefix string) (string, error) {
	code, err := gonanoid.Generate(receiptAlphabet, receiptLength)
	if err != nil {
		return "", fmt.Errorf("generate receipt code: %w", err)
	}
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return code, nil
	}
	return prefix + "-" + code, nil
}
