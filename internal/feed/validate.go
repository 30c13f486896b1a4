package feed

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidDocument = errors.New("invalid feed document")

type ValidationIssue struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationResult struct {
	Issues []ValidationIssue `json:"issues"`
}

func (r ValidationResult) IsValid() bool {
	return len(r.Issues) == 0
}

// Error joins the issues so a failed validation reads as one line in logs.
func (r ValidationResult) Error() string {
	parts := make([]string, 0, len(r.Issues))
	for _, is := range r.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", is.Path, is.Code))
	}
	return strings.Join(parts, "; ")
}

// Check reports every structural problem with doc.
//
// All documents: message ids are 1..N with no gaps or duplicates, and every
// record has a SKU. Listings and inventory: SKUs are unique. Listings: the
// first record is a parent, and every child references the parent of its
// block.
func Check(doc Document) ValidationResult {
	var res ValidationResult

	if len(doc.Records) == 0 {
		addIssue(&res, "records", "empty", "document has no records")
		return res
	}

	seen := make(map[string]struct{}, len(doc.Records))
	currentParent := ""

	for i, r := range doc.Records {
		path := fmt.Sprintf("records[%d]", i)

		if r.MessageID != i+1 {
			addIssue(&res, path+".message_id", "not_contiguous", fmt.Sprintf("expected %d, got %d", i+1, r.MessageID))
		}
		if strings.TrimSpace(r.SKU) == "" {
			addIssue(&res, path+".sku", "required", "field is required")
		}

		if doc.Kind != KindImages {
			if _, dup := seen[r.SKU]; dup {
				addIssue(&res, path+".sku", "duplicate", "sku "+r.SKU+" appears more than once")
			}
			seen[r.SKU] = struct{}{}
		}

		if doc.Kind != KindListings {
			continue
		}

		switch r.Relationship {
		case RelationshipParent:
			currentParent = r.SKU
			if r.ParentSKU != "" {
				addIssue(&res, path+".parent_sku", "unexpected", "parent records cannot reference a parent")
			}
		case RelationshipChild:
			if currentParent == "" {
				addIssue(&res, path+".relationship", "orphan_child", "child appears before any parent")
				continue
			}
			if r.ParentSKU != currentParent {
				addIssue(&res, path+".parent_sku", "mismatch", fmt.Sprintf("expected %q, got %q", currentParent, r.ParentSKU))
			}
			if r.Attributes.First(AttrSize) == "" {
				addIssue(&res, path+".attributes.size", "required", "children must carry their variation attribute")
			}
		default:
			addIssue(&res, path+".relationship", "invalid", "listings records must be parent or child")
		}
	}

	return res
}

// Validate wraps Check's issues in ErrInvalidDocument.
func Validate(doc Document) error {
	res := Check(doc)
	if res.IsValid() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidDocument, res.Error())
}

func addIssue(res *ValidationResult, path string, code string, msg string) {
	res.Issues = append(res.Issues, ValidationIssue{
		Path:    path,
		Code:    code,
		Message: msg,
	})
}
