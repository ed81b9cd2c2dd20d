package rules

// Clinical policy tables. Patterns are matched against normalized text
// (lowercase, accents stripped), so they are written unaccented.

// RedFlag is a sign that mandates an immediate ESI 1-2 classification with
// no further questions.
type redFlag struct {
	name      string
	patterns  []string
	level     int
	sign      string
	specialty string
}

var redFlags = []redFlag{
	{
		name:      "cardiac_arrest",
		patterns:  []string{"paro cardiaco", "paro cardiorrespiratorio", "sin pulso", "no tiene pulso", "cardiac arrest"},
		level:     1,
		sign:      "paro cardiorrespiratorio",
		specialty: "Reanimación",
	},
	{
		name:      "not_breathing",
		patterns:  []string{"no respira", "dejo de respirar", "sin respirar", "no esta respirando", "not breathing"},
		level:     1,
		sign:      "apnea",
		specialty: "Reanimación",
	},
	{
		name:      "unresponsive",
		patterns:  []string{"inconsciente", "no responde", "no reacciona", "no despierta", "no se despierta", "unresponsive"},
		level:     1,
		sign:      "compromiso de conciencia",
		specialty: "Reanimación",
	},
	{
		name:      "cyanosis",
		patterns:  []string{"piel azulada", "labios azules", "labios morados", "se puso morado", "cianosis"},
		level:     1,
		sign:      "cianosis",
		specialty: "Reanimación",
	},
	{
		name:      "airway",
		patterns:  []string{"se esta ahogando", "se ahoga", "no puede respirar", "asfixia", "atragantado"},
		level:     1,
		sign:      "compromiso de vía aérea",
		specialty: "Reanimación",
	},
	{
		name:      "arterial_bleeding",
		patterns:  []string{"sangrado que no para", "no deja de sangrar", "sangra a chorros", "hemorragia abundante", "sangrado arterial", "perdiendo mucha sangre"},
		level:     1,
		sign:      "hemorragia no controlada",
		specialty: "Cirugía",
	},
	{
		name:      "active_seizure",
		patterns:  []string{"esta convulsionando", "convulsionando ahora", "convulsion en este momento", "ataque de epilepsia ahora"},
		level:     1,
		sign:      "convulsión activa",
		specialty: "Neurología",
	},
	{
		name:      "stroke_signs",
		patterns:  []string{"cara caida", "boca torcida", "no puede hablar", "no le salen las palabras", "debilidad en un lado", "medio cuerpo dormido", "no mueve un lado"},
		level:     1,
		sign:      "focalidad neurológica aguda",
		specialty: "Neurología",
	},
	{
		name:      "altered_mental_status",
		patterns:  []string{"confundido de repente", "desorientado", "no reconoce a", "habla incoherencias"},
		level:     2,
		sign:      "alteración del estado mental",
		specialty: "Medicina de Urgencia",
	},
	{
		name:      "suicidal_ideation",
		patterns:  []string{"quitarme la vida", "matarme", "suicidarme", "ideacion suicida", "no quiero seguir viviendo", "hacerme dano"},
		level:     2,
		sign:      "ideación suicida activa",
		specialty: "Psiquiatría",
	},
	{
		name:      "severe_respiratory_distress",
		patterns:  []string{"no puede hablar de corrido", "respira muy agitado", "se le hunden las costillas", "dificultad severa para respirar"},
		level:     2,
		sign:      "dificultad respiratoria severa",
		specialty: "Medicina de Urgencia",
	},
}

// checkItem is one entry of a presenting complaint's life-threat
// checklist. Items are ordered by priority; the engine asks the first
// unaddressed one, one question per turn. A non-zero level means an
// affirmed item escalates the case to that ESI level.
type checkItem struct {
	id       string
	question string
	options  []string
	patterns []string
	level    int
	sign     string
}

var yesNoUnsure = []string{"Sí", "No", "No estoy seguro"}

// symptom ties a presenting complaint to its checklist and to the
// resource count expected once life threats are ruled out.
type symptom struct {
	name      string
	patterns  []string
	checklist []checkItem
	resources int
	specialty string
}

var symptoms = []symptom{
	{
		name:     "chest_pain",
		patterns: []string{"dolor de pecho", "dolor en el pecho", "dolor toracico", "me duele el pecho", "me aprieta el pecho", "presion en el pecho"},
		checklist: []checkItem{
			{
				id:       "oppressive_radiating",
				question: "¿El dolor es opresivo o se irradia al brazo, cuello o mandíbula?",
				options:  yesNoUnsure,
				patterns: []string{"opresivo", "irradia", "al brazo", "brazo izquierdo", "mandibula", "hacia el cuello"},
				level:    2,
				sign:     "dolor torácico sugerente de isquemia",
			},
			{
				id:       "diaphoresis",
				question: "¿Tiene sudoración fría o náuseas junto con el dolor?",
				options:  yesNoUnsure,
				patterns: []string{"sudor frio", "sudoracion fria", "sudando frio", "nauseas"},
				level:    2,
				sign:     "diaforesis",
			},
			{
				id:       "dyspnea_assoc",
				question: "¿Le falta el aire mientras tiene el dolor?",
				options:  yesNoUnsure,
				patterns: []string{"falta el aire", "me ahogo", "no puedo respirar bien"},
				level:    2,
				sign:     "disnea asociada",
			},
			{
				id:       "onset",
				question: "¿Desde cuándo tiene el dolor?",
				options:  []string{"Menos de 1 hora", "Algunas horas", "Más de un día"},
				patterns: []string{"hace", "desde", "minutos", "horas", "dias"},
			},
		},
		resources: 2,
		specialty: "Cardiología",
	},
	{
		name:     "abdominal_pain",
		patterns: []string{"dolor abdominal", "dolor de estomago", "dolor de guata", "dolor de barriga", "dolor de vientre", "me duele el estomago", "me duele la guata"},
		checklist: []checkItem{
			{
				id:       "rigid_abdomen",
				question: "¿El abdomen está rígido o duele mucho al tocarlo?",
				options:  yesNoUnsure,
				patterns: []string{"rigido", "como tabla", "no me puedo tocar"},
				level:    2,
				sign:     "abdomen en tabla",
			},
			{
				id:       "gi_bleeding",
				question: "¿Ha notado sangre en vómitos o deposiciones negras?",
				options:  yesNoUnsure,
				patterns: []string{"vomito con sangre", "sangre en las deposiciones", "deposiciones negras", "heces negras"},
				level:    2,
				sign:     "sangrado digestivo",
			},
			{
				id:       "pregnancy",
				question: "¿Existe posibilidad de embarazo?",
				options:  yesNoUnsure,
				patterns: []string{"embarazada", "embarazo"},
				level:    2,
				sign:     "dolor abdominal en embarazo",
			},
			{
				id:       "fever_assoc",
				question: "¿Tiene fiebre junto con el dolor?",
				options:  yesNoUnsure,
				patterns: []string{"fiebre", "calentura"},
			},
		},
		resources: 2,
		specialty: "Cirugía",
	},
	{
		name:     "headache",
		patterns: []string{"dolor de cabeza", "me duele la cabeza", "cefalea", "jaqueca", "migrana"},
		checklist: []checkItem{
			{
				id:       "thunderclap",
				question: "¿El dolor comenzó de forma súbita, como un estallido?",
				options:  yesNoUnsure,
				patterns: []string{"subito", "de repente", "estallido", "el peor dolor de mi vida"},
				level:    2,
				sign:     "cefalea en trueno",
			},
			{
				id:       "neuro_deficit",
				question: "¿Tiene visión borrosa, debilidad o dificultad para hablar?",
				options:  yesNoUnsure,
				patterns: []string{"vision borrosa", "vision doble", "debilidad", "hormigueo"},
				level:    1,
				sign:     "déficit neurológico",
			},
			{
				id:       "neck_stiffness",
				question: "¿Tiene fiebre y rigidez de cuello?",
				options:  yesNoUnsure,
				patterns: []string{"rigidez de cuello", "cuello rigido", "no puedo mover el cuello"},
				level:    2,
				sign:     "signos meníngeos",
			},
		},
		resources: 2,
		specialty: "Neurología",
	},
	{
		name:     "dyspnea",
		patterns: []string{"falta de aire", "me falta el aire", "dificultad para respirar", "me cuesta respirar", "ahogo"},
		checklist: []checkItem{
			{
				id:       "at_rest",
				question: "¿Le falta el aire incluso en reposo?",
				options:  yesNoUnsure,
				patterns: []string{"en reposo", "sentado", "sin hacer nada", "hasta acostado"},
				level:    2,
				sign:     "disnea de reposo",
			},
			{
				id:       "cyanosis_check",
				question: "¿Ha notado labios o uñas azulados?",
				options:  yesNoUnsure,
				patterns: []string{"labios azules", "unas moradas", "azulado"},
				level:    1,
				sign:     "cianosis",
			},
		},
		resources: 2,
		specialty: "Medicina de Urgencia",
	},
	{
		name:     "syncope",
		patterns: []string{"me desmaye", "se desmayo", "perdida de conocimiento", "desmayo", "sincope"},
		checklist: []checkItem{
			{
				id:       "full_loss",
				question: "¿Perdió el conocimiento por completo?",
				options:  yesNoUnsure,
				patterns: []string{"perdi el conocimiento", "por completo", "no recuerdo nada"},
				level:    2,
				sign:     "síncope con pérdida completa de conciencia",
			},
			{
				id:       "palpitations",
				question: "¿Sintió palpitaciones o dolor de pecho antes de desmayarse?",
				options:  yesNoUnsure,
				patterns: []string{"palpitaciones", "corazon acelerado", "dolor de pecho antes"},
				level:    2,
				sign:     "síncope de posible origen cardíaco",
			},
		},
		resources: 2,
		specialty: "Cardiología",
	},
	{
		name:     "limb_pain",
		patterns: []string{"dolor en el brazo", "dolor en la pierna", "me duele la pierna", "me duele el brazo", "me duele el tobillo", "dolor de rodilla", "me golpee", "me cai", "caida", "golpe en"},
		checklist: []checkItem{
			{
				id:       "deformity",
				question: "¿Hay deformidad evidente o hueso expuesto?",
				options:  yesNoUnsure,
				patterns: []string{"deformidad", "hueso expuesto", "quedo torcido"},
				level:    2,
				sign:     "fractura con deformidad",
			},
			{
				id:       "perfusion",
				question: "¿La extremidad está fría, pálida o sin sensibilidad?",
				options:  yesNoUnsure,
				patterns: []string{"fria", "palida", "sin sensibilidad", "no la siento"},
				level:    2,
				sign:     "compromiso vascular de extremidad",
			},
		},
		resources: 1,
		specialty: "Traumatología",
	},
	{
		name:     "fever",
		patterns: []string{"fiebre", "calentura", "temperatura alta"},
		checklist: []checkItem{
			{
				id:       "meningeal",
				question: "¿Tiene rigidez de cuello o manchas moradas en la piel?",
				options:  yesNoUnsure,
				patterns: []string{"rigidez de cuello", "manchas moradas", "manchas en la piel", "petequias"},
				level:    2,
				sign:     "sospecha de meningitis",
			},
			{
				id:       "young_infant",
				question: "¿El paciente es un bebé menor de 3 meses?",
				options:  yesNoUnsure,
				patterns: []string{"recien nacido", "un mes de vida", "dos meses de vida", "menor de 3 meses", "lactante"},
				level:    2,
				sign:     "fiebre en lactante menor",
			},
		},
		resources: 1,
		specialty: "Medicina General",
	},
	{
		name:     "psychiatric",
		patterns: []string{"ansiedad", "depresion", "angustia", "pena", "triste", "crisis de panico", "nervios"},
		checklist: []checkItem{
			{
				id:       "self_harm",
				question: "¿Ha pensado en hacerse daño o quitarse la vida?",
				options:  yesNoUnsure,
				patterns: []string{"quitarme la vida", "hacerme dano", "matarme", "suicid"},
				level:    2,
				sign:     "riesgo suicida",
			},
			{
				id:       "means",
				question: "¿Tiene a su alcance algo con lo que podría hacerse daño?",
				options:  yesNoUnsure,
				patterns: []string{"pastillas en la mano", "tengo un arma", "a mi alcance"},
				level:    1,
				sign:     "riesgo suicida con medios disponibles",
			},
		},
		resources: 1,
		specialty: "Psiquiatría",
	},
	{
		name:      "minor_wound",
		patterns:  []string{"herida pequena", "corte leve", "me corte", "raspon"},
		resources: 1,
		specialty: "Medicina General",
	},
	{
		name:      "cold_symptoms",
		patterns:  []string{"resfriado", "resfrio", "tos leve", "dolor de garganta", "congestion nasal", "romadizo"},
		resources: 0,
		specialty: "Medicina General",
	},
	{
		name:      "skin_rash",
		patterns:  []string{"picazon", "alergia en la piel", "ronchas", "sarpullido"},
		resources: 0,
		specialty: "Dermatología",
	},
}

// severityQualifiers mark utterances sitting at the boundary between two
// adjacent stable levels. By policy the boundary resolves to the more
// urgent level, so a qualifier counts as one extra resource.
var severityQualifiers = []string{
	"muy fuerte", "insoportable", "intenso", "empeora", "cada vez peor",
	"10 de 10", "no aguanto", "no me deja dormir", "no puedo caminar",
}

// physicalMarkers detect that an utterance carries physical or temporal
// symptom content at all. Without at least one marker or symptom match the
// vagueness gate refuses to classify.
var physicalMarkers = []string{
	"dolor", "duele", "fiebre", "sangr", "vomit", "mareo", "golpe",
	"herida", "tos", "respir", "picazon", "hinchado", "hinchazon",
	"quemadura", "fractura", "desmay",
}

var temporalMarkers = []string{
	"hace", "desde", "dias", "horas", "minutos", "semanas", "anoche", "ayer", "esta manana",
}

var affirmativeAnswers = []string{
	"si", "sí", "si tengo", "creo que si", "afirmativo", "asi es", "yes",
}

var negativeAnswers = []string{
	"no", "nada", "ninguno", "ninguna", "no tengo", "creo que no", "no estoy seguro", "no se",
}
