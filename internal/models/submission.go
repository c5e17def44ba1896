// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package models defines the data structures shared across the report tool.
package models

// RawSubmission is an email threat submission as returned by the Graph
// /security/threatSubmission/emailThreats endpoint. Nested objects are
// pointers so an absent object can be told apart from an empty one.
type RawSubmission struct {
	ID                    string `json:"id"`
	CreatedDateTime       string `json:"createdDateTime"`
	ContentType           string `json:"contentType"`
	Category              string `json:"category"`
	OriginalCategory      string `json:"originalCategory"`
	Source                string `json:"source"`
	ClientSource          string `json:"clientSource"`
	Status                string `json:"status"`
	TenantID              string `json:"tenantId"`
	RecipientEmailAddress string `json:"recipientEmailAddress"`
	Sender                string `json:"sender"`
	SenderIP              string `json:"senderIP"`
	Subject               string `json:"subject"`
	ReceivedDateTime      string `json:"receivedDateTime"`
	InternetMessageID     string `json:"internetMessageId"`

	CreatedBy                    *SubmissionIdentity `json:"createdBy"`
	Result                       *SubmissionResult   `json:"result"`
	AdminReview                  *AdminReview        `json:"adminReview"`
	AttackSimulationInfo         *AttackSimulation   `json:"attackSimulationInfo"`
	TenantAllowOrBlockListAction *TenantListAction   `json:"tenantAllowOrBlockListAction"`
}

// SubmissionIdentity wraps the user who created a submission.
type SubmissionIdentity struct {
	User *UserIdentity `json:"user"`
}

// UserIdentity is a Graph identity reference.
type UserIdentity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// SubmissionResult is Microsoft's verdict on a submission.
type SubmissionResult struct {
	Category           string         `json:"category"`
	Detail             string         `json:"detail"`
	UserMailboxSetting string         `json:"userMailboxSetting"`
	DetectedURLs       []string       `json:"detectedUrls"`
	DetectedFiles      []DetectedFile `json:"detectedFiles"`
}

// DetectedFile is an attachment flagged while grading a submission.
type DetectedFile struct {
	FileName string `json:"fileName"`
	FileHash string `json:"fileHash"`
}

// AdminReview records an administrator's review of a user submission.
type AdminReview struct {
	ReviewBy       string `json:"reviewBy"`
	ReviewResult   string `json:"reviewResult"`
	ReviewDateTime string `json:"reviewDateTime"`
}

// AttackSimulation is present when the submitted message came from an
// attack simulation training campaign.
type AttackSimulation struct {
	AttackSimDateTime     string `json:"attackSimDateTime"`
	AttackSimDurationTime string `json:"attackSimDurationTime"`
	AttackSimID           string `json:"attackSimId"`
	AttackSimUserID       string `json:"attackSimUserId"`
}

// TenantListAction is the allow/block list action taken with a submission.
type TenantListAction struct {
	Action             string             `json:"action"`
	ExpirationDateTime string             `json:"expirationDateTime"`
	Note               string             `json:"note"`
	Results            []TenantListResult `json:"results"`
}

// TenantListResult is one allow/block list entry created by an action.
type TenantListResult struct {
	Identity  string `json:"identity"`
	Status    string `json:"status"`
	Value     string `json:"value"`
	EntryType string `json:"entryType"`
}

// CanonicalRecord is the flat, export-ready form of a submission. Every
// field is a string; absent source values are rendered as "".
//
// InternetMessageID carries the identifier's provenance prefix
// ("RETRIEVED: " or "ALT-ID: ") and consumers must not strip it.
type CanonicalRecord struct {
	SubmissionID           string `json:"submissionId"`
	CreatedDateTime        string `json:"createdDateTime"`
	Source                 string `json:"source"`
	Category               string `json:"category"`
	OriginalCategory       string `json:"originalCategory"`
	ContentType            string `json:"contentType"`
	ClientSource           string `json:"clientSource"`
	Status                 string `json:"status"`
	TenantID               string `json:"tenantId"`
	SubmittedBy            string `json:"submittedBy"`
	SubmittedByEmail       string `json:"submittedByEmail"`
	SubmittedByUserID      string `json:"submittedByUserId"`
	Recipient              string `json:"recipient"`
	Sender                 string `json:"sender"`
	SenderIP               string `json:"senderIP"`
	Subject                string `json:"subject"`
	ReceivedDateTime       string `json:"receivedDateTime"`
	InternetMessageID      string `json:"internetMessageId"`
	MessageIDProvenance    string `json:"messageIdProvenance"`
	ResultCategory         string `json:"resultCategory"`
	ResultDetail           string `json:"resultDetail"`
	UserMailboxSetting     string `json:"userMailboxSetting"`
	DetectedURLs           string `json:"detectedUrls"`
	DetectedFileNames      string `json:"detectedFileNames"`
	DetectedFileHashes     string `json:"detectedFileHashes"`
	AdminReviewBy          string `json:"adminReviewBy"`
	AdminReviewResult      string `json:"adminReviewResult"`
	AdminReviewDateTime    string `json:"adminReviewDateTime"`
	IsAdminReviewed        string `json:"isAdminReviewed"`
	IsAttackSimulation     string `json:"isAttackSimulation"`
	AttackSimDateTime      string `json:"attackSimDateTime"`
	AttackSimDurationTime  string `json:"attackSimDurationTime"`
	AttackSimID            string `json:"attackSimId"`
	AttackSimUserID        string `json:"attackSimUserId"`
	TenantAction           string `json:"tenantAction"`
	TenantActionExpiration string `json:"tenantActionExpiration"`
	TenantActionNote       string `json:"tenantActionNote"`
	TenantActionResults    string `json:"tenantActionResults"`
}

// CSVHeader is the column order used for tabular exports.
var CSVHeader = []string{
	"SubmissionId", "CreatedDateTime", "Source", "Category", "OriginalCategory",
	"ContentType", "ClientSource", "Status", "TenantId",
	"SubmittedBy", "SubmittedByEmail", "SubmittedByUserId",
	"Recipient", "Sender", "SenderIP", "Subject", "ReceivedDateTime",
	"InternetMessageId", "MessageIdProvenance",
	"ResultCategory", "ResultDetail", "UserMailboxSetting",
	"DetectedUrls", "DetectedFileNames", "DetectedFileHashes",
	"AdminReviewBy", "AdminReviewResult", "AdminReviewDateTime", "IsAdminReviewed",
	"IsAttackSimulation", "AttackSimDateTime", "AttackSimDurationTime", "AttackSimId", "AttackSimUserId",
	"TenantAction", "TenantActionExpiration", "TenantActionNote", "TenantActionResults",
}

// Row returns the record's values in CSVHeader order.
func (r CanonicalRecord) Row() []string {
	return []string{
		r.SubmissionID, r.CreatedDateTime, r.Source, r.Category, r.OriginalCategory,
		r.ContentType, r.ClientSource, r.Status, r.TenantID,
		r.SubmittedBy, r.SubmittedByEmail, r.SubmittedByUserID,
		r.Recipient, r.Sender, r.SenderIP, r.Subject, r.ReceivedDateTime,
		r.InternetMessageID, r.MessageIDProvenance,
		r.ResultCategory, r.ResultDetail, r.UserMailboxSetting,
		r.DetectedURLs, r.DetectedFileNames, r.DetectedFileHashes,
		r.AdminReviewBy, r.AdminReviewResult, r.AdminReviewDateTime, r.IsAdminReviewed,
		r.IsAttackSimulation, r.AttackSimDateTime, r.AttackSimDurationTime, r.AttackSimID, r.AttackSimUserID,
		r.TenantAction, r.TenantActionExpiration, r.TenantActionNote, r.TenantActionResults,
	}
}
