package mcpserver

// BackupFormatContract describes the canonical backup document that
// LLM consumers should follow when generating documents for import.
const BackupFormatContract = `# NoteMaster Backup Document Contract

The import endpoint accepts a single JSON document holding the full
application state. The document either replaces all state or is
rejected whole; there is no partial merge.

## Structure

` + "```" + `json
{
  "folders": [
    {
      "id": "uuid",                 // REQUIRED, unique across the document
      "name": "工作",               // REQUIRED
      "parentId": "",               // "" for a root folder
      "isExpanded": true,
      "createdAt": 1737350400000,   // Unix milliseconds
      "updatedAt": 1737350400000
    }
  ],
  "notes": [
    {
      "id": "uuid",                 // REQUIRED, unique across the document
      "title": "新建笔记",
      "content": "Markdown body",
      "folderId": "uuid",           // REQUIRED
      "isFavorite": false,
      "tags": ["draft"],
      "aiMessages": [
        {"id": "uuid", "role": "user", "content": "...", "timestamp": 1737350400000}
      ],
      "createdAt": 1737350400000,
      "updatedAt": 1737350400000
    }
  ],
  "globalAIMessages": [],           // OPTIONAL, same shape as aiMessages
  "config": {
    "theme": "light",               // light | dark | system
    "fontSize": 15,                 // 12..24
    "autoSaveInterval": 3000,       // milliseconds, >= 0
    "aiProvider": "minimax",        // minimax | kimi | glm
    "aiApiKey": ""
  }
}
` + "```" + `

## Rules

1. The top-level keys ` + "`" + `folders` + "`" + `, ` + "`" + `notes` + "`" + ` and ` + "`" + `config` + "`" + ` are mandatory,
   even when the arrays are empty.
2. Every entity id must be unique across the whole document.
3. Message ` + "`" + `role` + "`" + ` is ` + "`" + `user` + "`" + ` or ` + "`" + `assistant` + "`" + `.
4. Timestamps are Unix epoch milliseconds.
5. A note's ` + "`" + `folderId` + "`" + ` should reference a folder in the document;
   dangling references are tolerated but the note then only appears in
   flat listings, not in the folder tree.
6. Encoding is UTF-8. Content may use any language.
`
