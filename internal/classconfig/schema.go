package classconfig

const classSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "definitions": {
    "strings": {"type": "array", "items": {"type": "string"}},
    "choice": {
      "type": "object",
      "properties": {
        "options": {"$ref": "#/definitions/strings"},
        "default": {"type": "string"},
        "description": {"type": "string"}
      }
    }
  },
  "properties": {
    "class": {"type": "string"},
    "available_subjects": {"$ref": "#/definitions/strings"},
    "default_subject": {"type": "string"},
    "boards": {"$ref": "#/definitions/strings"},
    "default_board": {"type": "string"},
    "exam_types": {"$ref": "#/definitions/strings"},
    "default_exam_type": {"type": "string"},
    "checking_strictness": {"$ref": "#/definitions/choice"},
    "answer_depth": {"$ref": "#/definitions/choice"},
    "feedback_tone": {"$ref": "#/definitions/choice"},
    "explanation_level": {"$ref": "#/definitions/choice"},
    "key_topics": {
      "type": "object",
      "additionalProperties": {"$ref": "#/definitions/strings"}
    }
  }
}`
