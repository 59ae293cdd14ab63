package normalize

import (
	"github.com/JakeFAU/integra-harvester/internal/shape"
	"github.com/JakeFAU/integra-harvester/internal/store"
)

func extractAppointments(doc any, _ store.RawRecord) []store.Row {
	items := shape.Records(shape.Get(doc, "dadosGerais", "atuacoesProfissionais"), "atuacaoProfissional")
	out := make([]store.Row, 0, len(items))
	for _, a := range items {
		out = append(out, store.Appointment{
			Institution: shape.String(a["nomeInstituicao"]),
			Activity:    shape.String(a["atividades"]),
			Bond:        shape.String(a["vinculo"]),
			StartYear:   shape.IntPtr(a["anoInicio"]),
			EndYear:     shape.IntPtr(a["anoFim"]),
		})
	}
	return out
}

func extractAwards(doc any, _ store.RawRecord) []store.Row {
	var out []store.Row
	for _, p := range shape.Records(shape.Get(doc, "dadosGerais", "premiosTitulos"), "premioTitulo") {
		name := shape.String(p["nomeDoPremioOuTitulo"])
		if name == "" {
			continue
		}
		out = append(out, store.Award{
			Name:        name,
			Year:        shape.IntPtr(p["ano"]),
			Institution: shape.String(p["nomeEntidadePromotora"]),
		})
	}
	return out
}

func extractResearchAreas(doc any, _ store.RawRecord) []store.Row {
	items := shape.Records(shape.Get(doc, "dadosGerais", "areasDeAtuacao"), "areaDeAtuacao")
	out := make([]store.Row, 0, len(items))
	for _, a := range items {
		out = append(out, store.ResearchArea{
			MajorArea: shape.String(a["nomeGrandeAreaDoConhecimento"]),
			Area:      shape.String(a["nomeDaAreaDoConhecimento"]),
			Subarea:   shape.String(a["nomeDaSubAreaDoConhecimento"]),
			Specialty: shape.String(a["nomeDaEspecialidade"]),
		})
	}
	return out
}
