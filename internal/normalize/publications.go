package normalize

import (
	"strings"

	"github.com/JakeFAU/integra-harvester/internal/shape"
	"github.com/JakeFAU/integra-harvester/internal/store"
)

type publicationPath struct {
	kind      string
	container string
	// wrapper is the key holding the item list inside a container element.
	wrapper string
	title   string
	year    string
	venue   string
}

var publicationPaths = []publicationPath{
	{store.PublicationArticle, "artigosPublicados", "artigoPublicado", "tituloDoArtigo", "anoDoArtigo", "tituloDoPeriodicoOuRevista"},
	{store.PublicationEventPaper, "trabalhosEmEventos", "trabalhoEmEventos", "tituloDoTrabalho", "anoDoTrabalho", "nomeDoEvento"},
	{store.PublicationBook, "livrosECapitulos", "livrosPublicadosOuOrganizados", "tituloDoLivro", "anoDoLivro", "nomeEditora"},
	{store.PublicationChapter, "livrosECapitulos", "capitulosDeLivrosPublicados", "tituloDoCapituloDoLivro", "anoDoCapitulo", "nomeEditora"},
}

func extractPublications(doc any, rec store.RawRecord) []store.Row {
	prod := shape.Map(doc, "producaoBibliografica")
	var out []store.Row
	for _, p := range publicationPaths {
		for _, item := range publicationItems(prod[p.container], p) {
			title := shape.String(item[p.title])
			if title == "" {
				title = untitled(item, rec.ID)
			}
			count, names := coauthors(item["autores"])
			out = append(out, store.Publication{
				Kind:          p.kind,
				Title:         title,
				Year:          shape.IntPtr(item[p.year]),
				Venue:         shape.String(item[p.venue]),
				CoauthorCount: count,
				Coauthors:     names,
				Details:       shape.JSON(item),
			})
		}
	}
	return out
}

// publicationItems flattens a container. Books and chapters share one container, so an element
// holding the other kind's wrapper contributes nothing and a bare item goes to the kind whose
// title key it carries.
func publicationItems(container any, p publicationPath) []map[string]any {
	var out []map[string]any
	for _, el := range shape.Records(container) {
		if inner, ok := el[p.wrapper]; ok {
			out = append(out, shape.Records(inner)...)
			continue
		}
		if isGrouping(el) || !owns(el, p) {
			continue
		}
		out = append(out, el)
	}
	return out
}

// isGrouping reports whether el is a wrapper object of any known publication list.
func isGrouping(el map[string]any) bool {
	for _, p := range publicationPaths {
		if _, ok := el[p.wrapper]; ok {
			return true
		}
	}
	return false
}

// owns decides which kind a bare item of a shared container belongs to. Items without any
// known title key go to the first kind of the container.
func owns(el map[string]any, p publicationPath) bool {
	if _, ok := el[p.title]; ok {
		return true
	}
	first := ""
	for _, q := range publicationPaths {
		if q.container != p.container {
			continue
		}
		if first == "" {
			first = q.kind
		}
		if _, ok := el[q.title]; ok {
			return false
		}
	}
	return first == p.kind
}

func coauthors(v any) (int, string) {
	list, ok := v.([]any)
	if !ok {
		return 0, ""
	}
	var names []string
	for _, el := range list {
		m, ok := el.(map[string]any)
		if !ok {
			continue
		}
		if name := shape.Text(m, "nomeCompletoDoAutor", "nomeParaCitacao"); name != "" {
			names = append(names, name)
		}
	}
	return len(names), strings.Join(names, "; ")
}
