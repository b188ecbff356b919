package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

var delegatedUserRegex = regexp.MustCompile(`^\{([^{}]+)\}\s*`)

const adviceCallTimeout = 60 * time.Second

func StartSlackBot(cfg Config, db *sql.DB, catalog *Catalog, api *slack.Client) error {
	client := socketmode.New(api)

	go func() {
		for evt := range client.Events {
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				client.Ack(*evt.Request)
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				log.Printf("Slash command received: %s from user=%s channel=%s", cmd.Command, cmd.UserID, cmd.ChannelID)
				go handleSlashCommand(api, db, cfg, catalog, cmd)
			}
		}
	}()

	log.Println("Assessment bot connected via Socket Mode")
	return client.Run()
}

func handleSlashCommand(api *slack.Client, db *sql.DB, cfg Config, catalog *Catalog, cmd slack.SlashCommand) {
	switch cmd.Command {
	case "/worklog":
		handleWorkLog(api, db, cfg, cmd)
	case "/fetchlogs":
		handleFetchLogs(api, db, cfg, cmd)
	case "/newassess":
		handleNewAssess(api, db, cfg, catalog, cmd)
	case "/editassess":
		handleEditAssess(api, db, cfg, cmd)
	case "/assessments":
		handleListAssessments(api, db, cfg, cmd)
	case "/assess":
		handleAssess(api, db, cfg, catalog, cmd)
	case "/advice":
		handleAdvice(api, db, cfg, catalog, cmd)
	case "/assess-help":
		handleHelp(api, cmd)
	}
}

// capabilityFor resolves the explicit authorization token for a caller.
// Staff membership comes from config; there is no ambient admin state.
func capabilityFor(cfg Config, userID string) Capability {
	return Capability{Privileged: cfg.IsStaffID(userID)}
}

// handleWorkLog records one work entry: `/worklog task | quantity | minutes`.
// Staff may record on behalf of a worker with a `{Name}` prefix.
func handleWorkLog(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand) {
	text := strings.TrimSpace(cmd.Text)
	userName := cmd.UserName

	if m := delegatedUserRegex.FindStringSubmatch(text); m != nil {
		if !capabilityFor(cfg, cmd.UserID).Privileged {
			postEphemeral(api, cmd, "Only staff can record work logs for someone else.")
			return
		}
		userName = strings.TrimSpace(m[1])
		text = strings.TrimSpace(delegatedUserRegex.ReplaceAllString(text, ""))
	}

	entry, err := parseWorkLogCommand(text, userName)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Could not read that: %v\nUsage: `/worklog <task> | <quantity> | <minutes>`", err))
		return
	}

	if err := InsertWorkLog(db, entry); err != nil {
		log.Printf("worklog insert error user=%s: %v", userName, err)
		postEphemeral(api, cmd, "Error saving the work log. Please try again.")
		return
	}
	postEphemeral(api, cmd, fmt.Sprintf("Recorded: %s — %g units in %g minutes for %s.",
		entry.TaskLabel, entry.Quantity, entry.DurationMinutes, entry.UserName))
}

// parseWorkLogCommand parses `task | quantity | minutes` into a work log
// dated today.
func parseWorkLogCommand(text, userName string) (WorkLog, error) {
	parts := strings.Split(text, "|")
	if len(parts) != 3 {
		return WorkLog{}, fmt.Errorf("%w: want three fields separated by |", ErrInvalidInput)
	}
	task := strings.TrimSpace(parts[0])
	if task == "" {
		return WorkLog{}, fmt.Errorf("%w: task must not be empty", ErrInvalidInput)
	}
	quantity, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || quantity < 0 {
		return WorkLog{}, fmt.Errorf("%w: quantity %q", ErrInvalidInput, strings.TrimSpace(parts[1]))
	}
	minutes, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil || minutes <= 0 {
		return WorkLog{}, fmt.Errorf("%w: minutes %q", ErrInvalidInput, strings.TrimSpace(parts[2]))
	}
	return WorkLog{
		LoggedOn:        time.Now().Format("2006-01-02"),
		UserName:        userName,
		TaskLabel:       task,
		Quantity:        quantity,
		DurationMinutes: minutes,
		Source:          "slack",
	}, nil
}

func handleFetchLogs(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand) {
	if !capabilityFor(cfg, cmd.UserID).Privileged {
		postEphemeral(api, cmd, "Only staff can trigger a sheet import.")
		return
	}
	postEphemeral(api, cmd, "Importing work logs from the sheet...")

	result, err := FetchAndImportWorkLogs(cfg, db)
	if err != nil {
		log.Printf("fetchlogs error: %v", err)
		postEphemeral(api, cmd, fmt.Sprintf("Sheet import failed: %v", err))
		return
	}
	postEphemeral(api, cmd, FormatImportSummary(result))
}

// handleNewAssess creates a stored assessment from the task catalog:
// `/newassess <name>`.
func handleNewAssess(api *slack.Client, db *sql.DB, cfg Config, catalog *Catalog, cmd slack.SlashCommand) {
	if !capabilityFor(cfg, cmd.UserID).Privileged {
		postEphemeral(api, cmd, "Only staff can create assessments.")
		return
	}
	d, err := createAssessment(db, catalog, cmd.Text)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			postEphemeral(api, cmd, fmt.Sprintf("Could not create that: %v\nUsage: `/newassess <name>`", err))
			return
		}
		log.Printf("newassess error: %v", err)
		postEphemeral(api, cmd, "Error creating the assessment. Please try again.")
		return
	}
	postEphemeral(api, cmd, fmt.Sprintf("Created an assessment for %s with %d catalog tasks. Use `/editassess` to fill it in.",
		d.DisplayName, len(d.Items)))
}

// createAssessment instantiates a dataset from the catalog template and
// stores it. Display names stay unique so `/assess <name>` resolution
// is unambiguous.
func createAssessment(db *sql.DB, catalog *Catalog, name string) (Dataset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Dataset{}, fmt.Errorf("%w: subject name is required", ErrInvalidInput)
	}
	if _, err := FindDatasetByName(db, name); err == nil {
		return Dataset{}, fmt.Errorf("%w: an assessment for %q already exists", ErrInvalidInput, name)
	} else if !errors.Is(err, ErrNotFound) {
		return Dataset{}, err
	}
	d := NewDatasetFromTemplate(uuid.NewString(), name, catalog.Entries())
	if err := SaveDataset(db, d); err != nil {
		return Dataset{}, err
	}
	log.Printf("assessment created subject=%s name=%q items=%d", d.SubjectID, name, len(d.Items))
	return d, nil
}

func handleListAssessments(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand) {
	if !capabilityFor(cfg, cmd.UserID).Privileged {
		postEphemeral(api, cmd, "Only staff can list assessments.")
		return
	}
	summaries, err := ListDatasets(db)
	if err != nil {
		log.Printf("assessments list error: %v", err)
		postEphemeral(api, cmd, "Error listing assessments. Please try again.")
		return
	}
	postEphemeral(api, cmd, formatAssessmentList(summaries))
}

func formatAssessmentList(summaries []DatasetSummary) string {
	if len(summaries) == 0 {
		return "No stored assessments yet. Use `/newassess <name>` to create one."
	}
	var b strings.Builder
	b.WriteString("*Stored assessments*\n")
	for _, s := range summaries {
		fmt.Fprintf(&b, "- %s (%d tasks)\n", s.DisplayName, s.ItemCount)
	}
	return b.String()
}

// handleEditAssess mutates a stored assessment:
// `/editassess <name> | <field> | <value...>`.
func handleEditAssess(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand) {
	caller := capabilityFor(cfg, cmd.UserID)
	if !caller.Privileged {
		postEphemeral(api, cmd, "Only staff can edit assessments.")
		return
	}
	msg, err := editAssessment(db, caller, cmd.Text)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			postEphemeral(api, cmd, fmt.Sprintf("Not found: %v", err))
		case errors.Is(err, ErrInvalidInput):
			postEphemeral(api, cmd, fmt.Sprintf("Could not read that: %v\nUsage: `/editassess <name> | <field> | <value>`\nFields: value, label, add, remove, opportunities, threats, categories, traits, guidance, delete", err))
		default:
			log.Printf("editassess error: %v", err)
			postEphemeral(api, cmd, "Error updating the assessment. Please try again.")
		}
		return
	}
	postEphemeral(api, cmd, msg)
}

// editAssessment loads, mutates, and persists one assessment field.
// Nothing is written when the mutation fails.
func editAssessment(db *sql.DB, caller Capability, text string) (string, error) {
	name, field, args, err := parseEditAssessCommand(text)
	if err != nil {
		return "", err
	}
	d, err := FindDatasetByName(db, name)
	if err != nil {
		return "", err
	}
	if field == "delete" {
		if err := DeleteDataset(db, d.SubjectID); err != nil {
			return "", err
		}
		log.Printf("assessment deleted subject=%s name=%q", d.SubjectID, d.DisplayName)
		return fmt.Sprintf("Deleted the assessment for %s.", d.DisplayName), nil
	}
	msg, err := applyAssessmentEdit(&d, caller, field, args)
	if err != nil {
		return "", err
	}
	if err := SaveDataset(db, d); err != nil {
		return "", err
	}
	return msg, nil
}

// parseEditAssessCommand splits `<name> | <field> | <args...>` on pipes.
func parseEditAssessCommand(text string) (name, field string, args []string, err error) {
	parts := strings.Split(text, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", nil, fmt.Errorf("%w: want <name> | <field> | <value>", ErrInvalidInput)
	}
	return parts[0], strings.ToLower(parts[1]), parts[2:], nil
}

// applyAssessmentEdit dispatches one edit onto the dataset and returns
// the confirmation text. Tasks are addressed by their exact label.
func applyAssessmentEdit(d *Dataset, caller Capability, field string, args []string) (string, error) {
	switch field {
	case "value":
		if len(args) != 2 {
			return "", fmt.Errorf("%w: value needs <task> | <number>", ErrInvalidInput)
		}
		item := d.itemByLabel(args[0])
		if item == nil {
			return "", fmt.Errorf("%w: task %q", ErrNotFound, args[0])
		}
		raw, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return "", fmt.Errorf("%w: value %q", ErrInvalidInput, args[1])
		}
		if err := d.SetItemValue(item.ID, raw); err != nil {
			return "", err
		}
		return fmt.Sprintf("Set %s to %g for %s.", item.Label, item.Value, d.DisplayName), nil
	case "label":
		if len(args) != 2 {
			return "", fmt.Errorf("%w: label needs <task> | <new label>", ErrInvalidInput)
		}
		item := d.itemByLabel(args[0])
		if item == nil {
			return "", fmt.Errorf("%w: task %q", ErrNotFound, args[0])
		}
		if err := d.SetItemLabel(item.ID, args[1]); err != nil {
			return "", err
		}
		return fmt.Sprintf("Renamed %q to %q.", args[0], item.Label), nil
	case "add":
		if len(args) != 2 {
			return "", fmt.Errorf("%w: add needs <task> | <ceiling>", ErrInvalidInput)
		}
		ceiling, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return "", fmt.Errorf("%w: ceiling %q", ErrInvalidInput, args[1])
		}
		item, err := d.AddItem(args[0], ceiling)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Added %s (ceiling %g).", item.Label, item.Ceiling), nil
	case "remove":
		if len(args) != 1 {
			return "", fmt.Errorf("%w: remove needs <task>", ErrInvalidInput)
		}
		item := d.itemByLabel(args[0])
		if item == nil {
			return "", fmt.Errorf("%w: task %q", ErrNotFound, args[0])
		}
		d.RemoveItem(item.ID)
		return fmt.Sprintf("Removed %s.", args[0]), nil
	case FactorOpportunities, FactorThreats:
		if err := d.SetExternalFactor(field, strings.Join(args, " | ")); err != nil {
			return "", err
		}
		return fmt.Sprintf("Updated %s for %s.", field, d.DisplayName), nil
	case "categories":
		if len(args) != 1 {
			return "", fmt.Errorf("%w: categories needs one comma-separated list", ErrInvalidInput)
		}
		if err := d.SetPrivilegedField(caller, PrivilegedDisabilityCategories, splitList(args[0])); err != nil {
			return "", err
		}
		return "Updated disability categories.", nil
	case "traits":
		if len(args) != 1 {
			return "", fmt.Errorf("%w: traits needs one comma-separated list", ErrInvalidInput)
		}
		if err := d.SetPrivilegedField(caller, PrivilegedBehavioralTraits, splitList(args[0])); err != nil {
			return "", err
		}
		return "Updated behavioral traits.", nil
	case "guidance":
		if err := d.SetPrivilegedField(caller, PrivilegedFreeformGuidance, strings.Join(args, " | ")); err != nil {
			return "", err
		}
		return "Updated guidance notes.", nil
	default:
		return "", fmt.Errorf("%w: unknown field %q", ErrInvalidInput, field)
	}
}

// parseSubjectArgs splits `<name> [high|baseline]` where the name may
// contain spaces. The trailing token is taken as a policy only when it
// names one.
func parseSubjectArgs(text string) (string, ThresholdPolicy, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", fmt.Errorf("%w: subject name is required", ErrInvalidInput)
	}
	fields := strings.Fields(text)
	policy := PolicyHighTarget
	if len(fields) > 1 {
		if p, err := ParseThresholdPolicy(fields[len(fields)-1]); err == nil {
			policy = p
			fields = fields[:len(fields)-1]
		}
	}
	name := strings.Join(fields, " ")
	if name == "" {
		return "", "", fmt.Errorf("%w: subject name is required", ErrInvalidInput)
	}
	return name, policy, nil
}

// datasetForSubject loads the stored assessment for a subject, or
// derives a synthetic one from their work logs when no assessment
// exists yet.
func datasetForSubject(db *sql.DB, catalog *Catalog, name string) (Dataset, bool, error) {
	d, err := FindDatasetByName(db, name)
	if err == nil {
		return d, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Dataset{}, false, err
	}

	logs, err := GetWorkLogsByUser(db, name)
	if err != nil {
		return Dataset{}, false, err
	}
	items, err := AggregateWorkRecords(RecordsFromLogs(logs), catalog)
	if err != nil {
		if errors.Is(err, ErrEmptyInput) {
			return Dataset{}, false, fmt.Errorf("%w: no assessment or work logs for %q", ErrNotFound, name)
		}
		return Dataset{}, false, err
	}
	return SyntheticDataset(name, items), true, nil
}

func handleAssess(api *slack.Client, db *sql.DB, cfg Config, catalog *Catalog, cmd slack.SlashCommand) {
	name, policy, err := parseSubjectArgs(cmd.Text)
	if err != nil {
		postEphemeral(api, cmd, "Usage: `/assess <name> [high|baseline]`")
		return
	}

	d, synthetic, err := datasetForSubject(db, catalog, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			postEphemeral(api, cmd, fmt.Sprintf("No assessment or work logs found for %q.", name))
			return
		}
		log.Printf("assess load error subject=%q: %v", name, err)
		postEphemeral(api, cmd, "Error loading the assessment. Please try again.")
		return
	}

	res, err := Classify(d, policy, cfg.PolicyTable())
	if err != nil {
		log.Printf("assess classify error subject=%q policy=%s: %v", name, policy, err)
		postEphemeral(api, cmd, "Error computing the assessment.")
		return
	}

	log.Printf("assess subject=%q policy=%s strengths=%d weaknesses=%d synthetic=%t",
		name, policy, len(res.Strengths), len(res.Weaknesses), synthetic)
	postEphemeral(api, cmd, renderAssessment(d, res, policy, synthetic))
}

// renderAssessment formats the strengths/weaknesses breakdown as Slack
// markdown. Percentages show each item against its own ceiling.
func renderAssessment(d Dataset, res ClassificationResult, policy ThresholdPolicy, synthetic bool) string {
	var b strings.Builder
	tier := "high target"
	if policy == PolicyBaseline {
		tier = "baseline"
	}
	fmt.Fprintf(&b, "*Assessment for %s* (%s tier, %.0f%%)\n", d.DisplayName, tier, res.ThresholdPercent*100)
	if synthetic {
		b.WriteString("_Derived from work logs (no stored assessment)._\n")
	}

	b.WriteString("\n*Strengths*\n")
	b.WriteString(renderItemLines(res.Strengths))
	b.WriteString("\n*Weaknesses*\n")
	b.WriteString(renderItemLines(res.Weaknesses))
	return b.String()
}

func renderItemLines(items []ScoredItem) string {
	if len(items) == 0 {
		return "- none\n"
	}
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s: %g / %g (%.0f%%)\n", item.Label, item.Value, item.Ceiling, itemRatio(item)*100)
	}
	return b.String()
}

func handleAdvice(api *slack.Client, db *sql.DB, cfg Config, catalog *Catalog, cmd slack.SlashCommand) {
	name, policy, err := parseSubjectArgs(cmd.Text)
	if err != nil {
		postEphemeral(api, cmd, "Usage: `/advice <name> [high|baseline]`")
		return
	}

	d, _, err := datasetForSubject(db, catalog, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			postEphemeral(api, cmd, fmt.Sprintf("No assessment or work logs found for %q.", name))
			return
		}
		log.Printf("advice load error subject=%q: %v", name, err)
		postEphemeral(api, cmd, "Error loading the assessment. Please try again.")
		return
	}

	res, err := Classify(d, policy, cfg.PolicyTable())
	if err != nil {
		log.Printf("advice classify error subject=%q policy=%s: %v", name, policy, err)
		postEphemeral(api, cmd, "Error computing the assessment.")
		return
	}

	// Privileged notes reach the generator only for staff callers.
	var notes *PrivilegedNotes
	if capabilityFor(cfg, cmd.UserID).Privileged {
		notes = d.Privileged
	}
	prompt := BuildAdvicePrompt(res, d.External, notes)

	postEphemeral(api, cmd, "Asking for advice, this can take a moment...")

	ctx, cancel := context.WithTimeout(context.Background(), adviceCallTimeout)
	defer cancel()
	advice, usage, err := GenerateAdvice(ctx, cfg, prompt)
	if err != nil {
		log.Printf("advice generation error subject=%q: %v", name, err)
		postEphemeral(api, cmd, "Advice generation failed. The assessment itself is unaffected; please try again later.")
		return
	}

	log.Printf("advice delivered subject=%q tokens=%d", name, usage.TotalTokens())
	postEphemeral(api, cmd, fmt.Sprintf("*Advice for %s*\n\n%s", d.DisplayName, advice))
}

func handleHelp(api *slack.Client, cmd slack.SlashCommand) {
	help := "*Assessment bot commands*\n" +
		"• `/worklog <task> | <quantity> | <minutes>` — Record a work entry (staff: prefix `{Name}` to record for someone else)\n" +
		"• `/fetchlogs` — Import work logs from the sheet (staff only)\n" +
		"• `/newassess <name>` — Create a stored assessment from the task catalog (staff only)\n" +
		"• `/editassess <name> | <field> | <value>` — Edit a stored assessment (staff only; fields: value, label, add, remove, opportunities, threats, categories, traits, guidance, delete)\n" +
		"• `/assessments` — List stored assessments (staff only)\n" +
		"• `/assess <name> [high|baseline]` — Strengths/weaknesses breakdown\n" +
		"• `/advice <name> [high|baseline]` — Generated improvement advice\n" +
		"• `/assess-help` — This message"
	postEphemeral(api, cmd, help)
}

func postEphemeral(api *slack.Client, cmd slack.SlashCommand, text string) {
	_, err := api.PostEphemeral(cmd.ChannelID, cmd.UserID, slack.MsgOptionText(text, false))
	if err != nil {
		log.Printf("Error posting ephemeral: %v", err)
	}
}
