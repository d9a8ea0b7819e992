package summarize

// DefaultWindowChars bounds the text handed to a single condensation call.
const DefaultWindowChars = 4000

// NoContent is the sentinel for a section the model output did not provide.
const NoContent = "내용 없음"

// Section labels, matched exactly when parsing model output.
const (
	labelAgenda      = "1. 주요 안건:"
	labelDiscussion  = "2. 논의 내용:"
	labelDecisions   = "3. 주요 결정사항:"
	labelActionItems = "4. 후속 조치:"
)

// windowInstruction asks for the fixed four-section shape.
const windowInstruction = `아래의 정확한 형식으로 회의 내용을 요약해주세요:
1. 주요 안건:
[안건 내용]

2. 논의 내용:
[논의된 내용]

3. 주요 결정사항:
[결정된 사항들]

4. 후속 조치:
[향후 조치사항]`

// mergeInstruction reduces several window summaries into one instance of the
// same shape. Needed because concatenating raw window summaries would repeat
// each section label once per window.
const mergeInstruction = `여러 요약본을 동일한 형식으로 하나로 통합해주세요.`
