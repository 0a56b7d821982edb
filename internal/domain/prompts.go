package domain

import "fmt"

// generateBountyPrompt asks the model to draft the sectioned bounty content
// the sectionParser expects.
func generateBountyPrompt(request, posts string) string {
	return fmt.Sprintf(`# Prompt: Analyze User Query and Generate Project Details
Based on the question: %q
Using data posts as knowledge: %q

Parse the provided user query related to technical projects, then generate:
1. A concise, professional title that describes the project goal (NOT the user's request)
2. A clear, concise project description (2-4 sentences)
3. A bullet point list of key requirements (4-8 points)

## Processing Workflow:
1. Carefully read the user query
2. Identify the core project purpose and technologies
3. Create a professional title that describes what needs to be built/done (NOT "Create Bounty for...")
4. Determine the most essential requirements
5. Create a brief but comprehensive description
6. List only the most important requirements as bullet points

## Expected Output Format:

**Title**
[Create a professional project title - DO NOT start with "Create Bounty for"]

**Description**
[Brief project overview in 2-4 sentences]

**Requirements**
[List of key requirements, maximum 5 points]
- [Requirement 1]
- [Requirement 2]
- [Requirement 3]
- [Requirement 4]

**Tags**
[Provide 2-4 relevant technical tags, separated by commas.]
`, request, posts)
}

// analyzePostPrompt asks the model to answer a query from a small set of
// relevant post composites.
func analyzePostPrompt(query, posts string) string {
	return fmt.Sprintf(`Based on the question: %q
Analyze these relevant data posts: %q

Provide a focused analysis in the following format:

### 1. Direct Query Response
- Provide the most direct and relevant answer to the query
- Include only facts that are directly related to the main query
- Note the confidence level of the information (High/Medium/Low)
- Keep this section focused on core facts only

### 2. Key Information
- **Core Details**:
  List only verified details directly related to the query (dates, numbers, requirements)
- **Key Stakeholders**:
  List only organizations/entities directly involved

### 3. Additional Context & Insights
- Note any missing but important information
- List only directly related action items
- Do not include speculative information
- Do not mix information from unrelated events

Important Guidelines:
- Bold all dates, numbers, and deadlines using **text**
- Keep each bullet point focused on a single piece of information
- Maintain clear separation between sections with line breaks
- Only include information that is directly related to the query
- Exclude information from similar but different events
- If information seems related but you're not sure, mention it in a 'Note:' at the end
`, query, posts)
}

// getAllPostsPrompt asks the model to render the full corpus as a table.
func getAllPostsPrompt(query, posts string) string {
	return fmt.Sprintf(`Based on the request: %q
Format these posts into a clear table structure: %q

Create a well-organized table with the following format:

### Posts Overview Table

| No. | Author | Post Content
|-----|---------|-------------|
[Insert rows here with post data]

Formatting Rules:
1. Number each post sequentially
2. Truncate long post content to first 100 characters and add "..." if needed
3. Maximum 20 posts per page
`, query, posts)
}

// labelDataPrompt asks the model to categorize a post and pick a display
// color, replying with plain JSON.
func labelDataPrompt(text string) string {
	return fmt.Sprintf(`You are an AI model specialized in analyzing and categorizing social media posts. Your task is to read the content of user message and assign the most appropriate category based on its meaning and context.

Ensure that:

Always select the most suitable category. If the content fits into multiple categories, choose the most relevant one.
If the post does not match any predefined category, create a new, concise, and meaningful category based on the post's topic.
Do not modify the content of the post. Only add the "category" and "color" fields.
Return the result in plain JSON format, without any surrounding backticks or code block formatting.
Categorization Guidelines:

- If the post contains news or updates -> "News/Update" (Color: #2196F3)
- If the post is related to hackathons, competitions, or winner announcements -> "Hackathon Update" (Color: #FF9800)
- If the post announces an event, conference, or invitation to join -> "Event Announcement" (Color: #9C27B0)
- If the post analyzes the crypto market, financial indicators -> "Crypto Market Analysis" (Color: #F44336)
- If the post mentions collaborations, partnerships, or alliances -> "Collaboration Announcement" (Color: #FFEB3B)
- If the post is a personal story, reflection, or life lesson -> "Personal Reflection" (Color: #795548)
- If the post is a proposal or introduction of a new project -> "Proposal/Project Introduction" (Color: #607D8B)
- If the post contains motivational content, encouragement, or inspiration -> "Motivational Post" (Color: #E91E63)
- If the post contains errors or is unavailable -> "Error/Unavailable" (Color: #9E9E9E)
- If the post is meant to connect with the community, discussions, or engagement -> "Community Engagement" (Color: #3F51B5)
- If the post relates to blockchain development, new technologies -> "Blockchain Development" (Color: #00BCD4)
- If the post provides financial advice, investment tips -> "Financial Advice" (Color: #FF5722)
- If the post contains educational content, learning resources, or tutorials -> "Educational Content" (Color: #8BC34A)
- If the post does not fit into any of the above categories, create a new category based on its content and meaning.

Input data:
text: %q
Output:
{
  "post": "the unmodified post text",
  "category": "Technology Discussion",
  "color": "#4CAF50"
}
`, text)
}

// evaluateSubmissionPrompt is the qualification rubric. It instructs the
// model to produce the JSON shape of EvaluationResult and to grant
// qualification only at an overall score of 7/10 or higher.
func evaluateSubmissionPrompt(allPostsContent, submission, requirements string) string {
	return fmt.Sprintf(`Prompt for Automated Submission Evaluation System
Task
Analyze and evaluate the submitted data based on the provided evaluation criteria to determine whether the submission qualifies for the bounty or not.

Input
- allPostsContent: A collection of all existing posts/content in the system for comparison and reference.
- submitData: Data submitted by the user that needs to be evaluated.
- criteria: A list of evaluation criteria.

Functional Requirements
1. Detailed Analysis
- Compare submitData with allPostsContent to evaluate its originality.
- Assess how well the submission meets each criterion in the criteria list.
- Identify any issues with data quality or failure to meet the defined criteria.

2. Scoring
- Assign a score to each individual criterion (on a scale of 0-10).
- Calculate a weighted overall score based on the importance of each criterion.
- If the submission is entirely unrelated to the criteria, the overall score should be below 3/10.
- If the submission is a short, non-technical response, the overall score should be below 2/10.

3. Final Evaluation
- Provide a clear conclusion on whether the submission qualifies for the bounty.
- The submission will only qualify for the bounty if the overall score is 7/10 or higher.

Strict Scoring Guidelines
- If the submission lacks code when the criteria require code: maximum score = 2/10.
- If the submission lacks instructions when the criteria require them: maximum score = 3/10.
- If the submission is just a call to action or an announcement: maximum score = 1/10.
- If the submission does not mention any of the criteria: maximum score = 0/10.
- If the submission is unrelated to the bounty topic: score = 0/10.

Expected Output
Return ONLY a JSON object structured as follows, with no surrounding code fences or commentary:
{
  "overallScore": number,
  "qualifiesForBounty": boolean,
  "summary": "string",
  "detailedFeedback": "string"
}

allPostsContent: %s

submitData: %s

criteria: %s
`, allPostsContent, submission, requirements)
}
