package demo

import "strings"

// script identifies a canned assistant reply category. Classification order
// matters: the first matching keyword category wins.
type script int

const (
	scriptGreeting script = iota
	scriptSymptoms
	scriptBooking
	scriptHours
)

// classify picks the script for a message by ordered substring match.
func classify(message string) script {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "symptom"):
		return scriptSymptoms
	case strings.Contains(lower, "book"), strings.Contains(lower, "appointment"):
		return scriptBooking
	case strings.Contains(lower, "hour"):
		return scriptHours
	default:
		return scriptGreeting
	}
}

// primarySubtag reduces a BCP 47 tag like "es-MX" to "es". Unknown or empty
// tags resolve to English.
func primarySubtag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return "en"
	}
	if i := strings.IndexByte(tag, '-'); i >= 0 {
		tag = tag[:i]
	}
	return tag
}

// scriptText returns the reply for a script in the requested language,
// falling back to English for unsupported subtags.
func scriptText(s script, lang string) string {
	variants, ok := scripts[s]
	if !ok {
		variants = scripts[scriptGreeting]
	}
	if text, ok := variants[lang]; ok {
		return text
	}
	return variants["en"]
}

var scripts = map[script]map[string]string{
	scriptSymptoms: {
		"en": "I can help guide you through a symptom assessment. Please tell me what symptoms you're experiencing, how long you've had them, and rate any pain from 1-10.",
		"es": "Puedo guiarte en una evaluación de síntomas. Dime qué síntomas tienes, desde cuándo y califica cualquier dolor del 1 al 10.",
		"fr": "Je peux vous guider dans une évaluation des symptômes. Dites-moi quels symptômes vous ressentez, depuis quand, et notez la douleur de 1 à 10.",
		"ar": "يمكنني مساعدتك في تقييم الأعراض. أخبرني ما الأعراض التي تشعر بها، منذ متى، وقيّم أي ألم من 1 إلى 10.",
	},
	scriptBooking: {
		"en": "I can help you book an appointment! Our next available slots are tomorrow at 10:00 AM, 2:30 PM, or 4:00 PM. Which works best for you?",
		"es": "¡Puedo ayudarte a reservar una cita! Los próximos horarios disponibles son mañana a las 10:00, 14:30 o 16:00. ¿Cuál te queda mejor?",
		"fr": "Je peux vous aider à prendre rendez-vous ! Les prochains créneaux sont demain à 10:00, 14:30 ou 16:00. Lequel vous convient ?",
		"ar": "يمكنني مساعدتك في حجز موعد! المواعيد المتاحة غداً: 10:00 صباحاً، 2:30 مساءً، أو 4:00 مساءً. أي وقت يناسبك؟",
	},
	scriptHours: {
		"en": "Our clinic is open Monday-Friday 8:00 AM - 6:00 PM, Saturday 9:00 AM - 1:00 PM, and closed on Sunday.",
		"es": "Nuestro horario es: lunes a viernes 8:00–18:00, sábado 9:00–13:00 y domingo cerrado.",
		"fr": "Horaires : lundi-vendredi 8h–18h, samedi 9h–13h, fermé le dimanche.",
		"ar": "ساعات العمل: من الإثنين إلى الجمعة 8:00 ص–6:00 م، السبت 9:00 ص–1:00 م، مغلق يوم الأحد.",
	},
	scriptGreeting: {
		"en": "I'm YarnGPT — here to help with symptom guidance, appointment booking, and general clinic questions. How can I assist you today?",
		"es": "Soy YarnGPT — puedo ayudar con orientación sobre síntomas, reservas de citas y preguntas generales. ¿En qué puedo ayudarte hoy?",
		"fr": "Je suis YarnGPT — je peux aider pour les symptômes, les rendez-vous et les questions générales. Comment puis-je vous aider ?",
		"ar": "أنا YarnGPT — هنا للمساعدة في إرشاد الأعراض وحجز المواعيد والأسئلة العامة. كيف أساعدك اليوم؟",
	},
}
