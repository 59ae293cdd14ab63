package normalize

import (
	"github.com/JakeFAU/integra-harvester/internal/shape"
	"github.com/JakeFAU/integra-harvester/internal/store"
)

// degreeLevels maps each degree list to its level, in output order.
var degreeLevels = []struct{ key, level string }{
	{"graduacoes", "Graduação"},
	{"especializacoes", "Especialização"},
	{"mestrados", "Mestrado"},
	{"mestradoProfissional", "Mestrado Profissional"},
	{"doutorado", "Doutorado"},
	{"posDoutorado", "Pós-Doutorado"},
	{"livreDocencia", "Livre-Docência"},
}

func extractEducation(doc any, _ store.RawRecord) []store.Row {
	groups := shape.Records(shape.Get(doc, "dadosGerais", "formacaoAcademicaTitulacao"))
	var out []store.Row
	for _, d := range degreeLevels {
		for _, f := range degreesOf(groups, d.key) {
			out = append(out, store.Education{
				Level:       d.level,
				Course:      shape.Text(f, "nomeCurso", "curso"),
				Institution: shape.Text(f, "nomeInstituicao", "instituicao"),
				StartYear:   shape.IntPtr(shape.First(f, "anoDeInicio", "anoInicio")),
				EndYear:     shape.IntPtr(shape.First(f, "anoDeConclusao", "anoFim")),
				Title:       shape.Text(f, "tituloDaMonografia", "tituloDaDissertacaoTese"),
				Advisor:     shape.Text(f, "nomeDoOrientador"),
			})
		}
	}
	return out
}

func degreesOf(groups []map[string]any, key string) []map[string]any {
	var out []map[string]any
	for _, g := range groups {
		out = append(out, shape.Records(g[key])...)
	}
	return out
}
