// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

const queriesSystemPrompt = `You are a research assistant generating diversified web search queries for educational content creation. Respond only with JSON.`

const queriesPromptFmt = `Generate between 5 and 8 diversified web search queries to research the subtopic %q within the broader topic %q.

Cover different angles: definitions and rules, usage examples, common mistakes, teaching explanations, and practice material.

Respond with a JSON array of query strings and nothing else.

Example response:
["present perfect tense rules", "present perfect vs past simple examples"]`

const extractSystemPrompt = `You are a research extraction system for educational content. You receive excerpts from web sources and extract structured findings. Respond only with JSON.`

const extractPromptFmt = `Extract structured findings about the subtopic %q (topic: %q) from the source excerpts below.

Respond with a JSON object containing:
- "key_facts": array of factual statements found in the sources
- "definitions": array of {"term", "definition"} objects
- "examples": array of concrete usage examples
- "quotes": array of short verbatim quotes worth attributing
- "related_topics": array of adjacent topics worth researching later

Do not include any text outside the JSON object.

Sources:
%s`
