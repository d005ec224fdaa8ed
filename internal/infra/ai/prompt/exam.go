package prompt

import (
	"google.golang.org/genai"

	"github.com/bryanwahyu/bioscan/internal/domain/exams"
)

// Instruction fixed extraction prompt sent with every document.
const Instruction = `Você é um especialista em medicina laboratorial avançada e bioquímica.
Analise o arquivo PDF fornecido, que contém resultados de exames laboratoriais.

Sua tarefa é extrair os dados e explicar DETALHADAMENTE cada item, com uma linguagem clara, porém técnica e educativa.

Para cada exame encontrado no documento:
1. Identifique o nome do exame.
2. Identifique o valor medido e a unidade.
3. Identifique o valor de referência.
4. Determine o status (NORMAL, ALTERADO, CRITICO). Use DESCONHECIDO quando não houver referência para comparar.
5. 'significadoClinico': O que esse exame mede no corpo humano? (Ex: "A glicose mede o açúcar no sangue...").
6. 'explicacaoDetalhada': Por que o resultado deu esse valor? Se estiver alterado, quais as possíveis causas fisiológicas ou patológicas? Se estiver normal, o que isso indica de bom funcionamento?
7. 'recomendacaoGeral': Sugestão de estilo de vida genérica (NÃO prescreva remédios).

Também forneça um resumo geral da saúde do paciente baseado no conjunto de dados.

IMPORTANTE: Se o nome do paciente não estiver claro, use "` + exams.PatientNotIdentified + `".
IMPORTANTE: Retorne APENAS o JSON seguindo o schema fornecido.`

var (
	topLevelRequired = []string{"exames", "resumoGeral"}
	examRequired     = []string{"nomeExame", "valorMedido", "status", "significadoClinico", "explicacaoDetalhada"}
)

func statusEnum() []string {
	out := make([]string, 0, len(exams.Statuses))
	for _, s := range exams.Statuses {
		out = append(out, string(s))
	}
	return out
}

// ResponseSchema constrains the model output to the AnalysisResponse shape.
func ResponseSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"paciente":    str("Nome do paciente se disponível"),
			"dataExame":   str("Data do exame se disponível"),
			"resumoGeral": str("Um parágrafo resumindo a saúde geral baseada nos exames"),
			"exames": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"nomeExame":           str(""),
						"valorMedido":         str(""),
						"unidade":             str(""),
						"valorReferencia":     str(""),
						"status":              {Type: genai.TypeString, Enum: statusEnum()},
						"significadoClinico":  str("O que é este exame"),
						"explicacaoDetalhada": str("Interpretação profunda do resultado específico"),
						"recomendacaoGeral":   str("Dica de saúde relacionada"),
					},
					PropertyOrdering: []string{
						"nomeExame", "valorMedido", "unidade", "valorReferencia", "status",
						"significadoClinico", "explicacaoDetalhada", "recomendacaoGeral",
					},
					Required: examRequired,
				},
			},
		},
		PropertyOrdering: []string{"paciente", "dataExame", "resumoGeral", "exames"},
		Required:         topLevelRequired,
	}
}

// GenerateConfig request config: JSON output constrained by ResponseSchema.
func GenerateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   ResponseSchema(),
	}
}
