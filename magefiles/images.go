package main

import (
	"fmt"
	"os/exec"

	"github.com/magefile/mage/sh"
)

const (
	pdftotextImage   = "pdftotext:latest"
	pdftotextContext = "build/pdftotext"
)

// containerBin returns docker when present, podman otherwise.
func containerBin() (string, error) {
	for _, bin := range []string{"docker", "podman"} {
		if _, err := exec.LookPath(bin); err == nil {
			return bin, nil
		}
	}
	return "", fmt.Errorf("neither docker nor podman found on PATH")
}

// Images builds the pdftotext container used by the PDF full-text source.
func Images() error {
	bin, err := containerBin()
	if err != nil {
		return err
	}
	if err := sh.RunV(bin, "build", "-t", pdftotextImage, pdftotextContext); err != nil {
		return fmt.Errorf("building %s: %w", pdftotextImage, err)
	}
	fmt.Printf("Built %s with %s\n", pdftotextImage, bin)
	return nil
}

// Digest builds the binary and runs one digest with the local configuration.
func Digest() error {
	if err := Build(); err != nil {
		return err
	}
	return sh.RunV("./"+binDir+"/"+binName, "run")
}
