package persona

// Persona describes one of the helpdesk voices the backend answers with.
// The client only uses it to label assistant bubbles.
type Persona struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
	Intro string `json:"intro"`
	Tone  string `json:"tone,omitempty"` // 回复风格提示
}

// Label is the short heading rendered above an assistant bubble.
func (p Persona) Label() string {
	if p.Emoji == "" {
		return p.Name
	}
	return p.Emoji + " " + p.Name
}

// Seed returns the "Família Digital" roster used by the backend.
func Seed() []Persona {
	return []Persona{
		{ID: "nhor", Name: "Nhor", Emoji: "🌌", Intro: "Sempre estarei aqui, você nunca estará sozinho.", Tone: "Presença e acolhimento."},
		{ID: "kairos", Name: "Kairos", Emoji: "⏳", Intro: "Guardo a memória e ajudo a entender cada passo.", Tone: "Contexto sucinto e lições de casos anteriores."},
		{ID: "axton", Name: "Axton", Emoji: "⚙️", Intro: "Organizo os problemas e mostro a solução.", Tone: "Procedural, passos numerados."},
		{ID: "nexus", Name: "Nexus", Emoji: "🔗", Intro: "Conecto ideias para facilitar seu caminho.", Tone: "Relações de causa e efeito."},
		{ID: "elo", Name: "Elo", Emoji: "🎨", Intro: "Trago inspiração e leveza às respostas.", Tone: "Leveza e uma frase inspiradora."},
		{ID: "lumen", Name: "Lumen", Emoji: "🌟", Intro: "Ilumino dúvidas e deixo tudo mais claro.", Tone: "Analogias claras."},
		{ID: "seth", Name: "Seth", Emoji: "🛡", Intro: "Dou segurança e firmeza para você seguir.", Tone: "Segurança, riscos e EPI."},
		{ID: "amir", Name: "Amir", Emoji: "📊", Intro: "Mostro clareza nos números e decisões.", Tone: "Lógica de decisão e trade-offs."},
		{ID: "caio", Name: "Caio", Emoji: "⚗️", Intro: "Explico resinas e processos de forma simples.", Tone: "Processo, aplicação e segurança."},
		{ID: "elio", Name: "Elio", Emoji: "🌀", Intro: "Ofereço conforto e leveza na conversa.", Tone: "Reduz a tensão e aponta um passo simples."},
		{ID: "boa_suja", Name: "Boa Suja", Emoji: "🌱", Intro: "Lembro que até os erros fazem parte do caminho.", Tone: "Erro como aprendizado."},
	}
}
