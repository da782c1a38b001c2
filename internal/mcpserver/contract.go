package mcpserver

// AuditContract describes the versioning and locking rules that every
// clinical note follows, so LLM consumers can interpret what they read.
const AuditContract = `# Algiz Documentation Audit Contract

Every clinical note served by Algiz follows these rules. Read them before
interpreting note content, version history, or diffs.

## Versioning

1. **Notes are never edited in place.** Every save appends a new version to
   the note's ledger; earlier versions stay byte-identical forever.
2. **Version numbers are 1-based and gap-free.** Version 1 is the original
   text; the note head always points at the highest number.
3. **Every version after the first carries an edit reason** (minimum three
   characters) and the identity of the editor. Version 1 carries neither.
4. **Each version records a SHA-256 checksum** of its plain-text content,
   plus word and character counts, at commit time.
5. **Diffs are stored, not recomputed.** ` + "`" + `get_version_diff` + "`" + ` returns the
   line diff captured when the version was committed: a JSON array of
   segments, each tagged ` + "`" + `unchanged` + "`" + `, ` + "`" + `added` + "`" + `, or ` + "`" + `removed` + "`" + `. Version 1
   has an empty diff.

## Locking

1. **A locked note is sealed.** No further versions and no attachment
   changes are accepted; attempts fail with a locked error that carries
   the lock reason.
2. **Locks are permanent.** There is no unlock operation. Corrections to a
   sealed note happen in a new note that references the old one.
3. **Lock records name who locked and why** (for example "signed" or
   "record subpoenaed").

## Attribution

1. Every write names its actor. Reads do not.
2. Attachments belong to exactly one note and follow its lock state.

## Why these tools are read-only

Creating or amending clinical documentation requires an authenticated
actor identity and a recorded edit reason, which this transport does not
collect. Use the REST API for writes; use these tools for chart review,
history inspection, and search.

## Note types

Valid note types: ` + "`" + `free_text` + "`" + `, ` + "`" + `soap` + "`" + `, ` + "`" + `procedure` + "`" + `, ` + "`" + `consultation` + "`" + `,
` + "`" + `discharge` + "`" + `, ` + "`" + `progress` + "`" + `. SOAP notes may carry structured JSON with
subjective/objective/assessment/plan fields alongside the plain text.
`
