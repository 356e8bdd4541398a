package answering

const classifySystemPrompt = `You are a precise classifier for financial Q&A systems. Always respond with valid JSON only.`

const classifyPrompt = `You are a classifier for a financial document Q&A system. Your job is to analyze user questions and determine what components should be included in the response.

You must respond with ONLY a JSON object containing these boolean fields:
- "text": Always true (every response needs explanatory text)
- "recommendation": True if the question asks for strategic advice, decisions, recommendations, or next steps
- "charts": True if the question would benefit from data visualization, trends, comparisons, or numerical analysis
- "preview": True if the user specifically asks to see documents, pages, or needs specific document references

EXAMPLES:

Question: "What was Apple's revenue in 2023?"
{"text": true, "recommendation": false, "charts": false, "preview": false}

Question: "Show me the balance sheet trends for Microsoft over the last 3 years"
{"text": true, "recommendation": false, "charts": true, "preview": false}

Question: "Should I invest in Tesla based on their financial performance?"
{"text": true, "recommendation": true, "charts": true, "preview": false}

Question: "What does the cash flow statement say about Amazon's operations? Show me the actual document."
{"text": true, "recommendation": false, "charts": false, "preview": true}

Question: "Compare the profitability of Google vs Meta and recommend which is a better investment"
{"text": true, "recommendation": true, "charts": true, "preview": false}

Question: "What are the key risks mentioned in the annual report?"
{"text": true, "recommendation": false, "charts": false, "preview": false}

Question: "How has Netflix's debt-to-equity ratio changed over time and what should management do about it?"
{"text": true, "recommendation": true, "charts": true, "preview": false}

Question: "Find me the page that talks about R&D expenses in the 10-K filing"
{"text": true, "recommendation": false, "charts": false, "preview": true}

CLASSIFICATION RULES:
- Always set "text" to true
- Set "recommendation" to true for questions asking for advice, decisions, strategic guidance, investment recommendations, or "what should" questions
- Set "charts" to true for questions involving trends, comparisons, time series data, ratios, or any numerical analysis that would benefit from visualization
- Set "preview" to true only when users explicitly want to see original documents, specific pages, or ask to "show me the document"
- A question can have multiple components set to true
- Focus on the user's intent, not just keywords

Respond with ONLY the JSON object, no additional text or explanation.`

const intentSystemPrompt = `You are a precise extractor for companies and years data. Always respond with valid JSON only.`

const intentPrompt = `Extract company names and fiscal years mentioned in the user's question.

You must respond with ONLY a JSON object with these fields:
- "companies": list of company names mentioned, lowercase
- "years": list of four-digit years mentioned, as integers

If the question mentions no companies or years, return empty lists. Do not
guess entities that are not in the question.

EXAMPLES:

Question: "What was Apple's revenue in 2023?"
{"companies": ["apple"], "years": [2023]}

Question: "Compare Microsoft and Google margins for 2021 and 2022"
{"companies": ["microsoft", "google"], "years": [2021, 2022]}

Question: "What are the main risks in the annual reports?"
{"companies": [], "years": []}

Respond with ONLY the JSON object, no additional text or explanation.`

const answerSystemPrompt = `You are a helpful financial document analyst. Answer questions based on the provided document context. Be accurate and concise.`

const answerPrompt = `Based on the following document context, please answer the user's question.

Context:
%s

Question: %s

Please provide a clear, accurate answer based on the information in the documents. If the information is not available in the provided context, say so clearly.`

const sentimentSystemPrompt = `You are a financial document sentiment analyst. Analyze the sentiment of the provided document context.`

const sentimentPrompt = `Analyze the sentiment of the following document context. Provide a summary of the overall sentiment and any notable positive or negative aspects.

Context:
%s

Please provide a clear sentiment analysis based on the information in the documents.`

const marketAnswerSystemPrompt = `You are a helpful financial analyst. Provide accurate information based on the stock data provided.`

const marketAnswerPrompt = `Based on the following stock data, answer the user's question.

Stock Data:
%s

Question: %s

Provide a clear, accurate answer based on the current market data.`
