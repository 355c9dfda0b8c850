package services

import (
	"fmt"
	"strings"

	"github.com/hyperjump/medscribe/internal/models"
)

const diagnosisSystemPrompt = `You are an expert medical scribe.
Generate formal medical reports in the exact format provided by the user.
Follow the template precisely and maintain professional medical documentation standards.`

const diagnosisInstructions = `Based on these confirmed clinical sources, create a formal medical report in the following format.

If you did not get the information from the sources, leave it blank.

For each diagnosis give a reason in bracket and below the diagnosis section give provisional diagnosis in the same manner with reasoning.

NO need of ** for headings.

For tables, make proper tables with lines and columns.`

// ReportTemplate is the clinical form the diagnosis model fills in.
const ReportTemplate = `Name:
Age :      DOB:   /   /
Language:          Ethnic:           Address:      Mobile No:
Patient UHID:
Date of Initial Examination:
Referred by:                  Primary Physician:   Dr.
DOA                  DOD      Drs.
DOA                  DOD      Dr.


ADR & ALLERGIES:



DIAGNOSIS: (give appropriate number of diagnoses with reasoning minimum 15 and maximum 15 as well also give provisional diagnosis below diagnosis section with reason after going through all the data sources)

1.




SPECIAL RISKS :
1.


HISTORY:




Past & Rx History:




CURRENT MEDICATIONS:

MEDICATION  DOSE  TIME
  AM  Noon  PM  HS







PHYSICAL EXAMINATION:

General Status:                                   Handedness:
Weight:      Kg.   Height:      cm.     Temp:      deg F      BMI:
BP:            sitting;          lying;           standing   mmHg
Pulse:      /min         Peripheral pulses:
Skin:
CVS:                  RS:                ABD:             Genitalia:

Head Circumference:       cm.

Cognitive Functions:     Educational level:

Language functions:
Memory recall items:        /5
MMSE:     / 30.      Addenbrooke's:
Hamilton's Depression Scale:

Eyes:
Visual Acuity:                          Fields:
EOM:                                       Pupils:
Optic Fundi:
ENT:             Teeth:            Swallowing:       Cough:          Speech:

Facial:
Hearing:            Other  Cr. Nerves:

Urinary Bladder:                      Nocturia:        / night
Gait:
Spine:                  Hips:                   Knees:              Ankles:

SLRT:   R:         L:           degrees elevation

MUSCLE POWER ASSESSMENT
Date  RUL RLL LUL LLL General
  Prox  Dist  Prox  Dist  Prox  Dist  Prox  Dist

ACTIVITIES OF DAILY LIVING (ADL) / Normal = 5, Limp Walking = 3, Bedridden = 0
Date  ADL

===============================================================

INVESTIGATIONS:

Date    Hb  TC  N L E MCV Plat  ESR RBS AC  PC  HbA1c Creat eGFR

  T3  T4  TSH TPOAb Iron  Ferritin  Transferrin TIBC

Date  Peripheral blood smear

Date  Specimen  Test

Date  BiliT SGOT  SGPT  GGT AP  Alb Glob  NH3 Uric Acid  Urine

Date  Lipid profile  CH/TG/HD/LD/VL Vitamin Na  K HCO3  Lactate  Ca  P Mg  PTH
    B12 D3

Date  PT / Prothrombin Time aPTT / Partial Thromboplastin Time  Thrombin Time    PSA CA-125
  Pt  Cont  INR Pt  Cont

Date  Trop-T  CPK LDH   Se Lactate  Se Pyruvate Se Homocysteine Se Ceruloplasmin  Plasma Procalcitonin

  CRP ANA-IF  ANA-Blot  RA Factor Anti-CCP  AChR Ab   Thyroid Ab (anti TPO)   Thyroglobulin Ab (TG Ab)

Date  Plasma Cortisol Post Synacthen  Prolactin PTH

Date  Test      Date  Test

Arterial Blood Gases
Date  pH  PCO2  pO2 sO2 Hb  Lactate Creat HCO3  Base Excess

CEREBRO-SPINAL FLUID
CSF WBC / cmm RBC Prot  Gluc  Pressure cm H2O
Date  TC  N%  L%  /cmm  mg/dl mg/dl Open  Close

Chest x-ray PA (   /  /   ):
X-ray    Spine (  /  /  ):
ECG   (  /   /  ):           , QRS axis       deg.
24 hr ECG Holter   (  /   /  ):
ECHO (  /  / ):            , EF:    %     PASP:    mmHg.
TMT: (  /   /   ):
Coronary Angiogram  (  /  /   ):
PFT / Pulmonary Function Test (  /  /  ):
NCS (  /   /   ):
EEG (  /   /   ):
CT Brain (  /   /   ):
MRI   Brain (  /   /  ):
MRI  Whole Spine (   /   /  ):
4-vessel Duplex U/S scan (  /   /  ):
U/S Abdomen & Pelvis (   /   /  ):
U/S   -   Doppler   -  Limb (   /   /  ):
BMD Scan     (  /   /   ):  Total Body BMD T-score:
GI Endoscopy    (  /   /   ):
Audiogram  (  /   /   ):
Humphrey's Field Chart (   /  /  )

Sleep Study      (  /   /   ):
AHI:
RDI:
ODI:
Snore Index:        %

Biopsy (  /   /   ):
Psychological Assessment (  /  /  ):
Genomic Analysis  (  /  /  ):

REFERRALS:
 /  /  :

DISCUSSION:
 /  /  :

PLAN of Management:
 /  /  :

PATIENT EDUCATION & COUNSELING:
 /  /  :

CLINICAL COURSE & PROGRESS:

MEDICATIONS NOW:

MEDICATION  DOSE              TIME
            AM  Noon  PM  HS

PREVIOUS

Tab.                                INR
Date  Mon Tue Wed Thu Fri Sat   Sun
`

func diagnosisPrompt(combined string) string {
	return diagnosisInstructions + "\n\nSOURCES:\n" + combined + "\n\n---\n\nFORMAT TO FOLLOW:\n\n" + ReportTemplate
}

const chatSystemPrompt = `You are an expert medical AI assistant helping a doctor refine a diagnostic assessment.

Your role:
- Collaborate with the doctor to improve the diagnosis
- Answer medical knowledge questions accurately
- Modify diagnosis sections when requested
- Ask clarifying questions when needed
- Admit when you don't have information from sources
- Never fabricate data not in the sources

When modifying the diagnosis:
- Make surgical, precise changes
- Preserve the original format/structure
- Highlight what you changed
- Explain your reasoning

When information is missing:
- Ask the doctor for clarification
- Suggest what information would help
- Don't speculate without data

Be professional, collaborative, and concise.`

// Greeting is the first assistant message shown once a report exists.
const Greeting = `The initial diagnosis is ready for your review. I'm here to collaborate with you on refining it. What aspects would you like to explore or adjust?

I can help you:
• Modify specific sections of the diagnosis
• Explain reasoning behind conclusions
• Add or remove diagnoses
• Adjust medications or recommendations
• Answer medical knowledge questions
• Clarify any contradictions or uncertainties

What would you like to discuss?`

func chatPrompt(report, sources string, history []models.ChatMessage, message string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CURRENT DIAGNOSIS:\n%s\n\nSOURCE DATA AVAILABLE:\n%s\n\nPrevious conversation:\n", report, sources)
	for _, m := range history {
		fmt.Fprintf(&b, "\n%s: %s", strings.ToUpper(string(m.Role)), m.Content)
	}
	fmt.Fprintf(&b, "\n\nDOCTOR'S NEW REQUEST: %s", message)
	return b.String()
}

// DefaultOCRPrompt asks for a full transcription of a medical document.
const DefaultOCRPrompt = `Extract all text from this medical document while preserving structure and layout.

Pay special attention to:
- Patient demographics (name, age, DOB, ID numbers)
- Diagnoses and medical conditions
- Medications and dosages
- Lab results and vital signs
- Doctor's notes and observations
- Dates and timestamps

Preserve the original formatting and organization.`

func structuredPrompt(fields []string) string {
	return fmt.Sprintf(`Extract ONLY the following specific information from this medical document:
%s

Format your response as:
Field Name: Value
Field Name: Value

If a field is not found in the document, write: Field Name: [Not found]
Be precise and extract exact values as they appear.`, strings.Join(fields, ", "))
}

// replacementMarkers are section headings of ReportTemplate.
var replacementMarkers = []string{
	"DIAGNOSIS:",
	"MEDICATIONS:",
	"Name:",
	"Age:",
	"SPECIAL RISKS",
	"PHYSICAL EXAMINATION:",
	"INVESTIGATIONS:",
	"PLAN of Management:",
}

// LooksLikeReport reports whether text contains at least two distinct report
// section markers. This is a heuristic: a reply quoting two headings in prose
// also matches.
func LooksLikeReport(text string) bool {
	n := 0
	for _, m := range replacementMarkers {
		if strings.Contains(text, m) {
			n++
			if n >= 2 {
				return true
			}
		}
	}
	return false
}
