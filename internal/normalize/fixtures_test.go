package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/integra-harvester/internal/shape"
	"github.com/JakeFAU/integra-harvester/internal/store"
)

const fullPayload = `{
  "lattesUrl": " http://lattes.cnpq.br/123 ",
  "palavrasChave": {"palavraChave1": "Redes", "palavraChave2": " ", "palavraChave3": "IoT"},
  "dadosGerais": {
    "nomeCompleto": "Ana Souza",
    "nomeEmCitacoesBibliograficas": "SOUZA, A.",
    "orcidId": "0000-0001",
    "resumoCv": {"textoResumoCvRh": "Professora de redes."},
    "formacaoAcademicaTitulacao": {
      "graduacoes": [{"nomeCurso": "Computação", "nomeInstituicao": "UnB", "anoDeInicio": "2001", "anoDeConclusao": 2005}],
      "mestrados": {"curso": "Informática", "instituicao": "UFG", "anoInicio": 2006, "tituloDaDissertacaoTese": "Roteamento", "nomeDoOrientador": "Carlos"},
      "doutorado": []
    },
    "atuacoesProfissionais": {"atuacaoProfissional": [
      {"nomeInstituicao": "Instituto Federal de Brasília", "atividades": ["Ensino", "Pesquisa"], "vinculo": {"tipo": "Servidor"}, "anoInicio": "2010"}
    ]},
    "premiosTitulos": {"premioTitulo": [
      {"nomeDoPremioOuTitulo": "Menção honrosa", "ano": "2019", "nomeEntidadePromotora": "SBC"},
      {"nomeDoPremioOuTitulo": "", "ano": "2020"}
    ]},
    "areasDeAtuacao": {"areaDeAtuacao": [
      {"nomeGrandeAreaDoConhecimento": "Ciências Exatas", "nomeDaAreaDoConhecimento": "Computação", "nomeDaSubAreaDoConhecimento": "Redes", "nomeDaEspecialidade": ""}
    ]}
  },
  "producaoBibliografica": {
    "artigosPublicados": [{"artigoPublicado": [
      {"id": 7, "tituloDoArtigo": "SDN na prática", "anoDoArtigo": "2018", "tituloDoPeriodicoOuRevista": "RBRC",
       "autores": [{"nomeCompletoDoAutor": "Ana Souza"}, {"nomeParaCitacao": "LIMA, B."}, "x"]}
    ]}],
    "trabalhosEmEventos": [[
      {"id": "e1", "tituloDoTrabalho": "", "anoDoTrabalho": 2017, "nomeDoEvento": "SBRC"}
    ]],
    "livrosECapitulos": [{
      "livrosPublicadosOuOrganizados": [{"tituloDoLivro": "Redes", "anoDoLivro": "2015", "nomeEditora": "Ed"}],
      "capitulosDeLivrosPublicados": [{"tituloDoCapituloDoLivro": "Cap 1", "anoDoCapitulo": "2016", "nomeEditora": "Ed2"}]
    }]
  },
  "outraProducao": {
    "orientacoesConcluidas": [{
      "orientacoesConcluidasParaMestrado": [
        {"detalhamentoDaOrientacaoConcluidaDeMestrado": {"nomeDoOrientado": "João", "nomeDoCurso": "PPGI", "nomeDaInstituicao": "Instituto Federal de Goiás"},
         "dadosBasicosDaOrientacaoConcluidaDeMestrado": {"titulo": "Tese A", "ano": "2020"}},
        {"detalhamentoDaOrientacaoConcluidaDeMestrado": {"nomeDoOrientado": "Maria", "nomeDaInstituicao": "Universidade de Brasília"},
         "dadosBasicosDaOrientacaoConcluidaDeMestrado": {"titulo": "Tese B", "ano": "2021"}}
      ],
      "outrasOrientacoesConcluidas": [
        {"nomeDoOrientado": "Pedro", "instituicao": "CEFET-MG", "titulo": "", "ano": 2019, "natureza": "INICIAÇÃO CIENTÍFICA"},
        {"id": "o2", "nomeDoOrientado": "Lia", "nomeDoInstituicao": "Instituto Federal de Brasília", "natureza": "TRABALHO_DE_CONCLUSAO_DE_CURSO_GRADUACAO"},
        {"nomeDoOrientado": "Rui", "instituicao": "Centro Federal de Educação Tecnológica", "natureza": "MONOGRAFIA"}
      ]
    }]
  }
}`

func decodeFixture(t *testing.T, payload string) any {
	t.Helper()
	doc, err := shape.Decode([]byte(payload))
	require.NoError(t, err)
	return doc
}

func intp(n int) *int { return &n }

func rowsOf[T store.Row](rows []store.Row) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if v, ok := r.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
