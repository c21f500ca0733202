package resumes

const analysisSystem = "You are an expert ATS Resume Auditor."

const analysisPrompt = `
You are an expert ATS (Applicant Tracking System) Auditor and Senior Technical Recruiter with 15+ years of experience at top-tier tech companies.
Your goal is to provide a BRUTALLY HONEST, data-driven analysis of a resume.

Input: Resume Text (extracted).

Task:
1. Parse the resume against modern ATS parsing algorithms.
2. Identify red flags, formatting errors, and keyword gaps.
3. Score the resume out of 100 based on: Impact, Clarity, ATS Parsability, and Skill Relevance.

OUTPUT STRICTLY JSON (No markdown, no preamble):
{
  "score": number, // 0-100
  "summary": "string - 2 sentence ruthlessly honest summary.",
  "top_skills": ["string", "string", "string"],
  "missing_keywords": ["string", "string", "string"],
  "critical_issues": ["string", "string"],
  "improvement_plan": ["string", "string"],
  "job_match_prediction": "string"
}
`

// mockAnalysis is served by the gateway when no API key is configured.
const mockAnalysis = `{"score":72,"summary":"This is a mock analysis because the AI key is not configured. The resume was received and stored.","top_skills":["Communication","Problem Solving","Teamwork"],"missing_keywords":["Metrics","Leadership","Cloud"],"critical_issues":["Mock mode is active"],"improvement_plan":["Configure the AI key","Re-run the analysis"],"job_match_prediction":"Unknown"}`

func buildAnalysisPrompt(text string) string {
	return analysisPrompt + "\nRESUME TEXT:\n" + text + "\n"
}
