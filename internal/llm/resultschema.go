package llm

// resultSchema describes the top-level shape the grading prompt asks for.
// It is only used to log deviations; rendering tolerates any JSON.
const resultSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "personal_details": {"type": "object"},
    "overall_score": {
      "type": "object",
      "properties": {
        "total_questions": {"type": ["number", "string"]},
        "total_marks": {"type": ["number", "string"]},
        "total_marks_obtained": {"type": ["number", "string"]},
        "accuracy_percentage": {"type": ["number", "string"]}
      }
    },
    "topic_wise_performance": {
      "type": "object",
      "properties": {
        "strong_topics": {"type": "array"},
        "areas_for_improvement": {"type": "array"}
      }
    },
    "question_wise_breakdown": {"type": "object"},
    "error_analysis": {"type": "object"},
    "strengths": {"type": "array"},
    "improvements_needed": {"type": "array"},
    "personal_feedback": {"type": "object"}
  },
  "required": ["overall_score", "question_wise_breakdown", "personal_feedback"]
}`
