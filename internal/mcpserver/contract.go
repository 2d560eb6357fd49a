package mcpserver

// RecordSchemaContract describes the canonical catalog resource format.
const RecordSchemaContract = `# langcards Catalog Record Schema

The catalog is a single JSON document: an array of record objects, served
in array order. Duplicate records are allowed and shown independently.

## Record

` + "```" + `json
{
  "name": "Go",
  "description": "Compiled, concurrent",
  "creationInfo": "2009",
  "link": "https://go.dev"
}
` + "```" + `

| Key            | Type   | Searched | Notes                                   |
|----------------|--------|----------|-----------------------------------------|
| ` + "`name`" + `         | string | yes      | Card heading.                           |
| ` + "`description`" + `  | string | yes      | Card paragraph.                         |
| ` + "`creationInfo`" + ` | string | no       | Display only; a bare number is accepted.|
| ` + "`link`" + `         | string | no       | Card link target; ` + "`javascript:`" + ` and other unsafe schemes are neutralised. |

## Rules

1. Missing keys render as empty text.
2. Search is a case-insensitive substring match on ` + "`name`" + ` or ` + "`description`" + `;
   the query is not trimmed. An empty query matches every record.
3. Legacy keys ` + "`nome`" + `, ` + "`descricao`" + ` and ` + "`data_criacao`" + ` are read as aliases of
   ` + "`name`" + `, ` + "`description`" + ` and ` + "`creationInfo`" + `. New resources should use the
   canonical keys; when both are present the canonical key wins.
4. The catalog is loaded once per process and is not refreshed; edit the
   resource and restart to publish changes.
`
