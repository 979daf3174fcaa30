package vault

import (
	"github.com/docudrive/document-layer/internal/app/domain/credential"
)

// requiredFields lists the keys a service-account key file must carry, in the
// order they are reported when missing.
var requiredFields = []string{
	"type",
	"project_id",
	"private_key_id",
	"private_key",
	"client_email",
	"client_id",
	"auth_uri",
	"token_uri",
}

// ValidateDocument checks a submitted credential document structurally: the
// discriminator must be "service_account" and every required field must be a
// non-empty string. No call to the external provider is made; a key file that
// passes here can still be rejected by the provider later.
func ValidateDocument(doc map[string]any) (credential.Document, error) {
	switch stringField(doc, "type") {
	case credential.TypeServiceAccount:
	case credential.TypeAuthorizedUser:
		// The interactive-user flow was retired; tell the caller exactly what
		// they uploaded instead of a generic failure.
		return credential.Document{}, &ValidationError{Kind: KindWrongType, Field: "type"}
	case "":
		return credential.Document{}, &ValidationError{Kind: KindMissingField, Field: "type"}
	default:
		return credential.Document{}, &ValidationError{Kind: KindUnsupportedType, Field: "type"}
	}

	for _, field := range requiredFields {
		if stringField(doc, field) == "" {
			return credential.Document{}, &ValidationError{Kind: KindMissingField, Field: field}
		}
	}

	return credential.Document{
		Type:         credential.TypeServiceAccount,
		ProjectID:    stringField(doc, "project_id"),
		PrivateKeyID: stringField(doc, "private_key_id"),
		PrivateKey:   stringField(doc, "private_key"),
		ClientEmail:  stringField(doc, "client_email"),
		ClientID:     stringField(doc, "client_id"),
		AuthURI:      stringField(doc, "auth_uri"),
		TokenURI:     stringField(doc, "token_uri"),
	}, nil
}

func stringField(doc map[string]any, key string) string {
	value, ok := doc[key]
	if !ok {
		return ""
	}
	s, ok := value.(string)
	if !ok {
		return ""
	}
	return s
}
