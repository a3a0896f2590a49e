package explain

import (
	"fmt"

	"github.com/veriscope/veriscope/internal/models"
)

// Fallback builds templated explanation text directly from the decision's
// numeric fields. It is used whenever the generative call fails, so the
// result writer never blocks on the model being available.
func Fallback(req Request) *models.Explanation {
	kind := "Image"
	switch req.MediaType {
	case models.MediaTypeVideo:
		kind = "Video"
	case models.MediaTypeAudio:
		kind = "Audio"
	}

	plain := fmt.Sprintf("%s classified as %s with %d%% credibility.",
		kind, req.Decision.Verdict, req.Decision.CredibilityScore)

	technical := fmt.Sprintf("Automated analysis estimated a manipulation probability of %.2f, yielding verdict %s at credibility level %s.",
		req.Decision.PFake, req.Decision.Verdict, req.Decision.CredibilityLevel)
	if req.FrameCount > 0 {
		technical = fmt.Sprintf("%s %d frames were sampled; %d were flagged as likely manipulated.",
			technical, req.FrameCount, req.FlaggedFrames)
	}
	if req.Face != nil && !req.Face.HasFaces {
		reason := req.Face.Reason
		if reason == "" {
			reason = "no faces detected"
		}
		technical = fmt.Sprintf("%s Face detection gate: %s; the uncertain fail-safe verdict applies.", technical, reason)
	}

	legal := fmt.Sprintf("Forensic analysis of the submitted %s produced the finding %s with a credibility score of %d out of 100. This finding was produced by automated classification.",
		kind, req.Decision.Verdict, req.Decision.CredibilityScore)

	return &models.Explanation{
		Plain:     plain,
		Technical: technical,
		Legal:     legal,
	}
}
