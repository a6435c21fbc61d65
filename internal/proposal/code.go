// Package proposal reads proposal codes from submitted archives and forwards
// proposals to the storage service.
package proposal

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	proposalFile      = "Proposal.xml"
	proposalElement   = "Proposal"
	codeAttribute     = "code"
	unsubmittedPrefix = "Unsubmitted-"
)

var (
	// ErrInvalidCode indicates a proposal code that is neither a real code nor a
	// placeholder for an unsubmitted proposal.
	ErrInvalidCode = errors.New("invalid proposal code")
	// ErrNotArchive indicates a submission that is not a zip file.
	ErrNotArchive = errors.New("not a zip file")
	// ErrNoProposalFile indicates an archive without Proposal.xml.
	ErrNoProposalFile = errors.New("no file Proposal.xml")
	// ErrMalformedProposal indicates an unusable Proposal.xml.
	ErrMalformedProposal = errors.New("malformed Proposal.xml")
	// ErrCodeMismatch indicates a form code that differs from the code in
	// Proposal.xml.
	ErrCodeMismatch = errors.New("proposal code does not match Proposal.xml")
)

// ParseCode validates a proposal code. Empty codes and "Unsubmitted-" codes
// belong to new proposals and yield "".
func ParseCode(code string) (string, error) {
	if code == "" || strings.HasPrefix(code, unsubmittedPrefix) {
		return "", nil
	}
	if strings.HasPrefix(code, "2") {
		return code, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCode, code)
}

// CodeFromArchive extracts the proposal code from the Proposal.xml file of a
// zipped proposal.
func CodeFromArchive(r io.ReaderAt, size int64) (string, error) {
	archive, err := zip.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("proposal: %w", ErrNotArchive)
	}
	for _, f := range archive.File {
		if f.Name != proposalFile {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("proposal: open %s: %w", proposalFile, err)
		}
		defer func() { _ = rc.Close() }()
		code, err := rootCode(rc)
		if err != nil {
			return "", err
		}
		return ParseCode(code)
	}
	return "", fmt.Errorf("proposal: %w", ErrNoProposalFile)
}

// rootCode returns the code attribute of the root element.
func rootCode(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", fmt.Errorf("%w: no root element", ErrMalformedProposal)
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedProposal, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != proposalElement {
			return "", fmt.Errorf("%w: the root element in the file %s must be %s, not %s",
				ErrMalformedProposal, proposalFile, proposalElement, start.Name.Local)
		}
		for _, attr := range start.Attr {
			if attr.Name.Space == "" && attr.Name.Local == codeAttribute {
				return attr.Value, nil
			}
		}
		return "", fmt.Errorf("%w: no proposal code", ErrMalformedProposal)
	}
}
