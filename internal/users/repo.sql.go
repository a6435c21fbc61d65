package users

const findUserByCredentials = `
SELECT u.pipt_user_id
FROM pipt_user AS u
WHERE u.username = $1 AND u.password = md5($2)
`

const findUserByID = `
SELECT u.pipt_user_id, u.username, i.first_name, i.surname, i.email
FROM pipt_user AS u
JOIN investigator AS i USING (investigator_id)
WHERE u.pipt_user_id = $1
`

const findUserRoleSettings = `
SELECT s.pipt_setting_name, us.value, u.active
FROM pipt_user AS u
LEFT JOIN pipt_user_setting AS us ON us.pipt_user_id = u.pipt_user_id
LEFT JOIN pipt_setting AS s ON s.pipt_setting_id = us.pipt_setting_id
WHERE u.pipt_user_id = $1
`

const findProposalContacts = `
SELECT leader.username, contact.username
FROM proposal_code AS pc
JOIN proposal_contact AS prc ON prc.proposal_code_id = pc.proposal_code_id
LEFT JOIN pipt_user AS leader ON leader.pipt_user_id = prc.leader_id
LEFT JOIN pipt_user AS contact ON contact.pipt_user_id = prc.contact_id
WHERE pc.proposal_code = $1
`
