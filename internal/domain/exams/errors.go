package exams

import "errors"

var (
	// ErrFileRead the selected document could not be read or is not a PDF.
	ErrFileRead = errors.New("file read error")
	// ErrMissingCredential no API key was available for the call.
	ErrMissingCredential = errors.New("missing credential")
	// ErrAuthorization the AI provider rejected the API key (HTTP 401/403 or similar).
	ErrAuthorization = errors.New("ai authorization error")
	// ErrEmptyResponse the AI provider answered without content.
	ErrEmptyResponse = errors.New("ai empty response")
	// ErrParse the AI response does not match the analysis schema.
	ErrParse = errors.New("ai response parse error")
	// ErrUnexpected catch-all.
	ErrUnexpected = errors.New("unexpected error")
)

// Kind names an error category of the taxonomy.
type Kind string

const (
	KindFileRead          Kind = "file_read"
	KindMissingCredential Kind = "missing_credential"
	KindAuthorization     Kind = "authorization"
	KindEmptyResponse     Kind = "empty_response"
	KindParse             Kind = "parse"
	KindUnexpected        Kind = "unexpected"
)

var kinds = []struct {
	err     error
	kind    Kind
	message string
}{
	{ErrFileRead, KindFileRead, "Erro ao ler o arquivo."},
	{ErrMissingCredential, KindMissingCredential, "Chave de API não fornecida."},
	{ErrAuthorization, KindAuthorization, "Chave de API inválida ou sem permissão. Informe uma nova chave."},
	{ErrEmptyResponse, KindEmptyResponse, "Não foi possível gerar a análise. Tente novamente."},
	{ErrParse, KindParse, "Falha ao analisar o documento com a IA. Verifique se o PDF é válido e legível."},
}

const unexpectedMessage = "Ocorreu um erro inesperado."

// KindOf classifies err. Errors outside the taxonomy are KindUnexpected.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnexpected
}

// Message returns the user-facing (pt-BR) text for err.
func Message(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.message
		}
	}
	return unexpectedMessage
}

// IsAuthorization reports whether err should invalidate the stored credential.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrAuthorization)
}
