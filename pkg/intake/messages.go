package intake

// Fixed patient-facing texts for the deployment locale.
const (
	msgWelcome = "Hola, soy el asistente de orientación de urgencias. Le haré algunas preguntas breves para que el equipo clínico pueda atenderle mejor."

	msgConsent = "Antes de comenzar: sus respuestas serán revisadas por personal clínico y se usarán de forma anónima para mejorar la atención. ¿Autoriza el uso de esta información?"

	msgConsentDeclined = "Entiendo. Sin su autorización no puedo registrar la consulta, pero puede cambiar de opinión cuando quiera. ¿Autoriza el uso de esta información?"

	msgConsentRepeat = "Disculpe, no entendí su respuesta. ¿Autoriza el uso de esta información?"

	msgAskGender = "Gracias. ¿Con qué género se identifica? Puede omitir esta pregunta si lo prefiere."

	msgAskAge = "¿En qué grupo de edad se encuentra el paciente?"

	msgAskSymptoms = "Ahora cuénteme, ¿qué molestia le trae hoy y desde cuándo la siente?"

	msgSymptomTooShort = "¿Podría describir la molestia con un poco más de detalle?"

	msgDegraded = "Estamos presentando dificultades técnicas. Por favor diríjase directamente al personal de admisión para ser atendido; su información quedó registrada."

	msgCompleted = "Gracias. Su información fue registrada y el equipo clínico la revisará de inmediato. Guarde este código para identificarse en admisión: "

	msgSessionDone = "Esta conversación ya finalizó. Por favor diríjase al personal de admisión."
)

var (
	consentOptions = []string{"Autorizo", "No autorizo"}
	genderOptions  = []string{"Masculino", "Femenino", "Otro", "Prefiero no decir"}
	ageOptions     = []string{"Menor de 18", "Entre 18 y 64", "65 o más", "Prefiero no decir"}
)
