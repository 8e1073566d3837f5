package graphql

// GetChat fetches one chat record by id
const GetChat = `
query GetChat($id: ID!) {
  getChat(id: $id) {
    id
    userID
    human
    bot
    payload
    createdAt
    updatedAt
    __typename
  }
}
`

// ChatsByUserID lists the chat records of a user
const ChatsByUserID = `
query ChatsByUserID(
  $userID: ID!
  $sortDirection: ModelSortDirection
  $filter: ModelChatFilterInput
  $limit: Int
  $nextToken: String
) {
  chatsByUserID(
    userID: $userID
    sortDirection: $sortDirection
    filter: $filter
    limit: $limit
    nextToken: $nextToken
  ) {
    items {
      id
      userID
      human
      bot
      payload
      createdAt
      updatedAt
      __typename
    }
    nextToken
    __typename
  }
}
`

// UpdateChat stores the bot reply on a chat record, which fans out to
// subscribed clients.
const UpdateChat = `
mutation UpdateChat(
  $input: UpdateChatInput!
  $condition: ModelChatConditionInput
) {
  updateChat(input: $input, condition: $condition) {
    id
    userID
    human
    bot
    payload
    createdAt
    updatedAt
    __typename
  }
}
`
