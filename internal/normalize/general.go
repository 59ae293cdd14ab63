package normalize

import (
	"fmt"
	"strings"

	"github.com/JakeFAU/integra-harvester/internal/shape"
	"github.com/JakeFAU/integra-harvester/internal/store"
)

const maxKeywordSlots = 9

func extractGeneralInfo(doc any, _ store.RawRecord) []store.Row {
	dg := shape.Map(doc, "dadosGerais")
	row := store.GeneralInfo{
		FullName:     shape.Text(dg, "nomeCompleto"),
		CitationName: shape.Text(dg, "nomeEmCitacoesBibliograficas"),
		ORCID:        shape.Text(dg, "orcidId"),
		Summary:      summary(dg["resumoCv"]),
		LattesURL:    shape.String(shape.Get(doc, "lattesUrl")),
		Keywords:     keywords(shape.Get(doc, "palavrasChave")),
	}
	if row.FullName == "" && row.CitationName == "" {
		return nil
	}
	return []store.Row{row}
}

func summary(v any) string {
	val := shape.Of(v)
	switch val.Kind {
	case shape.Scalar:
		return shape.String(val.Scalar)
	case shape.Single, shape.List:
		for _, m := range val.Items {
			if s := shape.Text(m, "textoResumoCvRh"); s != "" {
				return s
			}
		}
	}
	return ""
}

// keywords accepts a plain string, a list of values, or a palavraChave1..9 object.
func keywords(v any) string {
	var parts []string
	val := shape.Of(v)
	switch val.Kind {
	case shape.Scalar:
		return shape.String(val.Scalar)
	case shape.List:
		for _, el := range v.([]any) {
			if _, isObj := el.(map[string]any); isObj {
				continue
			}
			if s := shape.String(el); s != "" {
				parts = append(parts, s)
			}
		}
	}
	for _, m := range val.Items {
		for i := 1; i <= maxKeywordSlots; i++ {
			if s := shape.String(m[fmt.Sprintf("palavraChave%d", i)]); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, ", ")
}
