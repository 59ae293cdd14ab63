package normalize

import (
	"strings"

	"github.com/JakeFAU/integra-harvester/internal/fold"
	"github.com/JakeFAU/integra-harvester/internal/shape"
	"github.com/JakeFAU/integra-harvester/internal/store"
)

// supervisionKinds maps each completed-supervision list to its category and to the keys of
// the detail and basic-data objects some payloads nest the fields under.
var supervisionKinds = []struct {
	key, category, detail, basics string
}{
	{
		"orientacoesConcluidasParaMestrado", store.SupervisionMasters,
		"detalhamentoDaOrientacaoConcluidaDeMestrado", "dadosBasicosDaOrientacaoConcluidaDeMestrado",
	},
	{
		"orientacoesConcluidasParaDoutorado", store.SupervisionDoctoral,
		"detalhamentoDaOrientacaoConcluidaDeDoutorado", "dadosBasicosDaOrientacaoConcluidaDeDoutorado",
	},
	{
		"orientacoesConcluidasParaPosDoutorado", store.SupervisionPostdoctoral,
		"detalhamentoDaOrientacaoConcluidaDePosDoutorado", "dadosBasicosDaOrientacaoConcluidaDePosDoutorado",
	},
	{
		"outrasOrientacoesConcluidas", store.SupervisionOther,
		"detalhamentoDeOutrasOrientacoesConcluidas", "dadosBasicosDeOutrasOrientacoesConcluidas",
	},
}

func extractSupervisions(doc any, rec store.RawRecord) []store.Row {
	var out []store.Row
	for _, container := range shape.Records(shape.Get(doc, "outraProducao", "orientacoesConcluidas")) {
		for _, k := range supervisionKinds {
			for _, item := range shape.Records(container[k.key]) {
				detail := shape.Object(item[k.detail])
				basics := shape.Object(item[k.basics])
				// Flat rows carry every field on the item itself.
				objs := []map[string]any{detail, basics, item}

				title := shape.String(pick([]map[string]any{basics, item}, "titulo"))
				if title == "" {
					title = untitled(item, rec.ID)
				}
				category := k.category
				if category == store.SupervisionOther {
					category = otherCategory(shape.String(pick([]map[string]any{basics, item}, "natureza")))
				}
				out = append(out, store.Supervision{
					Category:    category,
					StudentName: shape.String(pick(objs, "nomeDoOrientado")),
					Course:      shape.String(pick(objs, "nomeDoCurso", "curso", "tipoDeCurso")),
					Institution: shape.String(pick(objs, "nomeDaInstituicao", "nomeDoInstituicao", "instituicao")),
					Title:       title,
					Year:        shape.IntPtr(pick([]map[string]any{basics, item}, "ano")),
				})
			}
		}
	}
	return out
}

// otherCategory refines the "other" category by the nature of the supervision.
func otherCategory(nature string) string {
	n := fold.String(nature)
	switch {
	case strings.Contains(n, "iniciacao"):
		return store.SupervisionScientificInitiation
	case strings.Contains(n, "tcc"), strings.Contains(n, "graduacao"):
		return store.SupervisionUndergraduateThesis
	default:
		return store.SupervisionOther
	}
}
