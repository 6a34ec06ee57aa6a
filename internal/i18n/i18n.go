package i18n

import (
	"strconv"
	"strings"
)

// Language represents a supported language.
type Language string

const (
	// English is the English language.
	English Language = "en"
	// Portuguese is Brazilian Portuguese.
	Portuguese Language = "pt"
)

// DefaultLanguage is the fallback language.
const DefaultLanguage = Language(English)

// translations maps language codes to translation keys and their values.
//
//nolint:gochecknoglobals // static lookup table.
var translations = map[Language]map[string]string{
	English: {
		"app.title":               "FitFocus",
		"app.tagline":             "Your training plan, logbook and coach.",
		"nav.workout":             "Workout",
		"nav.stats":               "Progress",
		"nav.home":                "Back to start",
		"language.picker.label":   "Language",
		"language.name.en":        "English",
		"language.name.pt":        "Português",
		"language.prompt":         "English",
		"setup.title":             "Your training plan",
		"setup.description":       "Paste or describe your routine. FitFocus turns it into a structured 5-day plan.",
		"setup.label":             "Describe your routine",
		"setup.placeholder":       "Day 1: bench press 4x8-10, incline dumbbell press 3x10-12...",
		"setup.submit":            "Create plan",
		"setup.error.empty":       "Describe your routine first.",
		"setup.error.remote":      "Could not process the plan. Try describing it more clearly.",
		"setup.error.tooLong":     "The description is too long. Shorten it and try again.",
		"setup.history":           "Sets already in your history:",
		"nav.data":                "Data",
		"data.description":        "Download a backup of your plan and history, or restore one on another device.",
		"data.imported":           "Sets added from the backup:",
		"data.reset.description":  "Deletes the plan and every logged set on this device.",
		"insight.title":           "Coach analysis",
		"workout.day":             "Day",
		"workout.sets":            "sets",
		"workout.reps":            "reps",
		"workout.weight":          "Weight (kg)",
		"workout.repsCompleted":   "Reps",
		"workout.log":             "Log set",
		"workout.logged":          "Done",
		"workout.last":            "Last",
		"workout.best":            "Best",
		"workout.pr.target":       "PR possible",
		"workout.pr.new":          "New personal record!",
		"workout.progress":        "completed",
		"workout.clear":           "Reset today",
		"workout.tips":            "Technique",
		"stats.title":             "Progress",
		"stats.totalLogs":         "Sets logged",
		"stats.totalVolume":       "Total volume (kg)",
		"stats.activeDays":        "Active days",
		"stats.muscles":           "Volume by muscle group",
		"stats.timeline":          "Daily volume, last 30 days",
		"stats.date":              "Date",
		"stats.volume":            "Volume (kg)",
		"stats.empty":             "No sets logged yet.",
		"stats.coach":             "AI coach",
		"stats.coach.loading":     "Analysing your training...",
		"stats.coach.open":        "Open the analysis",
		"insight.placeholder":     "Keep training! I need at least 6 logged sets to analyse your progress.",
		"insight.unavailable":     "The coach is unavailable right now. Try again later.",
		"data.title":              "Your data",
		"data.export":             "Export data",
		"data.import.label":       "Backup file",
		"data.import.submit":      "Import backup",
		"data.import.error":       "The backup file could not be read.",
		"reset.submit":            "Reset all data",
		"muscle.Chest":            "Chest",
		"muscle.Back":             "Back",
		"muscle.Legs":             "Legs",
		"muscle.Shoulders":        "Shoulders",
		"muscle.Arms":             "Arms",
		"muscle.Core":             "Core",
		"muscle.General":          "General",
		"error.title":             "Something went wrong",
		"error.description":       "Please try again in a moment.",
		"notfound.title":          "Page not found",
		"notfound.description":    "The page you are looking for does not exist.",
	},
	Portuguese: {
		"app.title":               "FitFocus",
		"app.tagline":             "Seu plano de treino, diário e treinador.",
		"nav.workout":             "Treino",
		"nav.stats":               "Progresso",
		"nav.home":                "Voltar ao início",
		"language.picker.label":   "Idioma",
		"language.name.en":        "English",
		"language.name.pt":        "Português",
		"language.prompt":         "Brazilian Portuguese",
		"setup.title":             "Seu plano de treino",
		"setup.description":       "Cole ou descreva sua rotina. O FitFocus transforma em um plano estruturado de 5 dias.",
		"setup.label":             "Descreva sua rotina",
		"setup.placeholder":       "Dia 1: supino reto 4x8-10, supino inclinado com halteres 3x10-12...",
		"setup.submit":            "Criar plano",
		"setup.error.empty":       "Descreva sua rotina primeiro.",
		"setup.error.remote":      "Erro ao processar o plano. Tente descrevê-lo de forma mais clara.",
		"setup.error.tooLong":     "A descrição é longa demais. Encurte e tente novamente.",
		"setup.history":           "Séries já no seu histórico:",
		"nav.data":                "Dados",
		"data.description":        "Baixe um backup do seu plano e histórico ou restaure em outro dispositivo.",
		"data.imported":           "Séries adicionadas do backup:",
		"data.reset.description":  "Apaga o plano e todas as séries registradas neste dispositivo.",
		"insight.title":           "Análise do treinador",
		"workout.day":             "Dia",
		"workout.sets":            "séries",
		"workout.reps":            "reps",
		"workout.weight":          "Carga (kg)",
		"workout.repsCompleted":   "Repetições",
		"workout.log":             "Registrar",
		"workout.logged":          "Concluído",
		"workout.last":            "Última",
		"workout.best":            "Recorde",
		"workout.pr.target":       "PR Possível",
		"workout.pr.new":          "Novo recorde pessoal!",
		"workout.progress":        "concluídos",
		"workout.clear":           "Zerar hoje",
		"workout.tips":            "Técnica",
		"stats.title":             "Progresso",
		"stats.totalLogs":         "Séries registradas",
		"stats.totalVolume":       "Volume total (kg)",
		"stats.activeDays":        "Dias ativos",
		"stats.muscles":           "Volume por grupo muscular",
		"stats.timeline":          "Volume diário, últimos 30 dias",
		"stats.date":              "Data",
		"stats.volume":            "Volume (kg)",
		"stats.empty":             "Nenhuma série registrada ainda.",
		"stats.coach":             "Treinador IA",
		"stats.coach.loading":     "Analisando seu treino...",
		"stats.coach.open":        "Abrir a análise",
		"insight.placeholder":     "Continue treinando! Preciso de pelo menos 6 séries registradas para analisar seu progresso.",
		"insight.unavailable":     "O treinador está indisponível no momento. Tente novamente mais tarde.",
		"data.title":              "Seus dados",
		"data.export":             "Exportar dados",
		"data.import.label":       "Arquivo de backup",
		"data.import.submit":      "Importar backup",
		"data.import.error":       "Não foi possível ler o arquivo de backup.",
		"reset.submit":            "Apagar todos os dados",
		"muscle.Chest":            "Peito",
		"muscle.Back":             "Costas",
		"muscle.Legs":             "Pernas",
		"muscle.Shoulders":        "Ombros",
		"muscle.Arms":             "Braços",
		"muscle.Core":             "Core",
		"muscle.General":          "Geral",
		"error.title":             "Algo deu errado",
		"error.description":       "Tente novamente em instantes.",
		"notfound.title":          "Página não encontrada",
		"notfound.description":    "A página que você procura não existe.",
	},
}

// SupportedLanguages returns a list of all supported languages.
func SupportedLanguages() []Language {
	return []Language{English, Portuguese}
}

// IsSupported checks if a language is supported.
func IsSupported(lang Language) bool {
	_, ok := translations[lang]
	return ok
}

// Translate returns the translation for the given key in the specified language.
// If the key is not found, it falls back to the default language.
// If still not found, it returns the key itself.
func Translate(lang Language, key string) string {
	if langTranslations, ok := translations[lang]; ok {
		if translation, ok := langTranslations[key]; ok {
			return translation
		}
	}

	if lang != DefaultLanguage {
		if translation, ok := translations[DefaultLanguage][key]; ok {
			return translation
		}
	}

	return key
}

// Negotiate picks the best supported language from an Accept-Language header value.
func Negotiate(acceptLanguage string) Language {
	best := DefaultLanguage
	bestQ := -1.0
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		q := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			q = parsed
		}
		primary, _, _ := strings.Cut(strings.ToLower(tag), "-")
		lang := Language(primary)
		if IsSupported(lang) && q > bestQ {
			best, bestQ = lang, q
		}
	}
	return best
}
